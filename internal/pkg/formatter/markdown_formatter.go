package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/ragchat/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(transcript *entity.SessionDTO) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", transcriptTitle(transcript))

	for _, msg := range transcript.Messages {
		fmt.Fprintf(&buf, "**%s** (%s):\n\n%s\n\n", roleLabel(msg.Role), msg.CreatedAt.Format("2006-01-02 15:04"), msg.Content)
		if line := sourcesLine(msg.Sources); line != "" {
			fmt.Fprintf(&buf, "_%s_\n\n", line)
		}
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
