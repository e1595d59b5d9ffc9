package formatter

import (
	"fmt"
	"strings"

	"github.com/futig/ragchat/internal/entity"
)

const defaultTitle = "Chat transcript"

type Formatter interface {
	Format(transcript *entity.SessionDTO) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// ExportMeta describes a rendered transcript download.
type ExportMeta struct {
	ContentType string
	Filename    string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatJSON:
		return NewJSONFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func transcriptTitle(transcript *entity.SessionDTO) string {
	if transcript.Title != "" {
		return transcript.Title
	}
	return defaultTitle
}

func roleLabel(role entity.MessageRole) string {
	switch role {
	case entity.RoleUser:
		return "You"
	case entity.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}

func sourcesLine(sources []entity.SourceRef) string {
	if len(sources) == 0 {
		return ""
	}

	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		parts = append(parts, fmt.Sprintf("[%s] %s", src.Label, src.Source))
	}
	return "Sources: " + strings.Join(parts, ", ")
}
