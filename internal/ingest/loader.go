package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/document"
	"go.uber.org/zap"

	"github.com/futig/ragchat/internal/entity"
)

// LoadedDocument is a document with its full extracted text, ready for
// splitting and embedding.
type LoadedDocument struct {
	Filename    string
	Source      string
	ContentType string
	Size        int64
	Text        string
}

// LoadError records a document that could not be loaded. Loading other
// documents continues past it.
type LoadError struct {
	Source string
	Err    error
}

var contentTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Loader reads source documents from a directory tree and extracts their
// plain text.
type Loader struct {
	maxFileSize int64
}

func NewLoader(maxFileSize int64) *Loader {
	return &Loader{maxFileSize: maxFileSize}
}

// LoadDir walks dir and loads every supported document found in it. Files
// with unsupported extensions are skipped silently. A file that fails to
// load is reported in the returned errors and does not stop the walk.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]LoadedDocument, []LoadError, error) {
	var docs []LoadedDocument
	var loadErrs []LoadError

	// A missing docs directory is fine, the knowledge base can be filled
	// through uploads instead.
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		ctxzap.Warn(ctx, "docs directory does not exist", zap.String("dir", dir))
		return nil, nil, nil
	}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := contentTypes[ext]; !ok {
			return nil
		}

		doc, loadErr := l.LoadFile(ctx, path)
		if loadErr != nil {
			ctxzap.Warn(ctx, "failed to load document",
				zap.String("path", path),
				zap.Error(loadErr))
			loadErrs = append(loadErrs, LoadError{Source: path, Err: loadErr})
			return nil
		}

		docs = append(docs, *doc)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk docs dir %s: %w", dir, err)
	}

	return docs, loadErrs, nil
}

// LoadFile extracts the plain text of a single document.
func (l *Loader) LoadFile(ctx context.Context, path string) (*LoadedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return nil, fmt.Errorf("%w: file is %d bytes (max %d)", entity.ErrFileTooLarge, info.Size(), l.maxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := contentTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, ext)
	}

	var text string
	switch ext {
	case ".txt", ".md":
		text, err = loadPlainText(path)
	case ".pdf":
		text, err = loadPDF(path)
	case ".docx":
		text, err = loadDOCX(path)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no extractable text", entity.ErrInvalidFile)
	}

	return &LoadedDocument{
		Filename:    filepath.Base(path),
		Source:      path,
		ContentType: contentType,
		Size:        info.Size(),
		Text:        text,
	}, nil
}

// ExtractText extracts text from an in-memory upload based on its filename
// extension.
func (l *Loader) ExtractText(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := contentTypes[ext]; !ok {
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, ext)
	}

	var text string
	var err error

	switch ext {
	case ".txt", ".md":
		text = string(data)
	case ".pdf":
		text, err = extractPDF(bytes.NewReader(data), int64(len(data)))
	case ".docx":
		var doc *document.Document
		doc, err = document.Read(bytes.NewReader(data), int64(len(data)))
		if err == nil {
			defer doc.Close()
			text = docxText(doc)
		}
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no extractable text", entity.ErrInvalidFile)
	}

	return text, nil
}

func loadPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func loadPDF(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf: %w", err)
	}

	return extractPDF(file, info.Size())
}

func extractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return buf.String(), nil
}

func loadDOCX(path string) (string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	return docxText(doc), nil
}

func docxText(doc *document.Document) string {
	var sb strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
