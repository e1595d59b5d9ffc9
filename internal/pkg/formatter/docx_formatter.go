package formatter

import (
	"bytes"

	"github.com/unidoc/unioffice/document"

	"github.com/futig/ragchat/internal/entity"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(transcript *entity.SessionDTO) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titleRun := titlePar.AddRun()
	titleRun.AddText(transcriptTitle(transcript))

	doc.AddParagraph()

	for _, msg := range transcript.Messages {
		headerPar := doc.AddParagraph()
		headerRun := headerPar.AddRun()
		headerRun.Properties().SetBold(true)
		headerRun.AddText(roleLabel(msg.Role) + " (" + msg.CreatedAt.Format("2006-01-02 15:04") + ")")

		bodyPar := doc.AddParagraph()
		bodyRun := bodyPar.AddRun()
		bodyRun.AddText(msg.Content)

		if line := sourcesLine(msg.Sources); line != "" {
			srcPar := doc.AddParagraph()
			srcRun := srcPar.AddRun()
			srcRun.Properties().SetItalic(true)
			srcRun.AddText(line)
		}

		doc.AddParagraph()
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
