package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/ragchat/internal/entity"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadDirMissingDirectory(t *testing.T) {
	loader := NewLoader(1 << 20)

	docs, loadErrs, err := loader.LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, loadErrs)
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guide.txt", "restart the router before checking cables")
	writeFile(t, dir, "notes.md", "# Troubleshooting\n\ncheck the logs first")
	writeFile(t, dir, "image.png", "not a document")

	loader := NewLoader(0)
	docs, loadErrs, err := loader.LoadDir(context.Background(), dir)

	require.NoError(t, err)
	assert.Empty(t, loadErrs)
	require.Len(t, docs, 2)

	byName := map[string]LoadedDocument{}
	for _, doc := range docs {
		byName[doc.Filename] = doc
	}

	guide, ok := byName["guide.txt"]
	require.True(t, ok)
	assert.Equal(t, "text/plain", guide.ContentType)
	assert.Contains(t, guide.Text, "restart the router")

	notes, ok := byName["notes.md"]
	require.True(t, ok)
	assert.Equal(t, "text/markdown", notes.ContentType)
}

func TestLoader_LoadDirContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.txt", "   ")
	writeFile(t, dir, "good.txt", "usable content")

	loader := NewLoader(0)
	docs, loadErrs, err := loader.LoadDir(context.Background(), dir)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.txt", docs[0].Filename)

	require.Len(t, loadErrs, 1)
	assert.ErrorIs(t, loadErrs[0].Err, entity.ErrInvalidFile)
}

func TestLoader_MaxFileSize(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.txt", "this file is larger than the limit")

	loader := NewLoader(10)
	_, err := loader.LoadFile(context.Background(), path)

	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrFileTooLarge))
}

func TestLoader_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "archive.zip", "binary")

	loader := NewLoader(0)
	_, err := loader.LoadFile(context.Background(), path)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}

func TestLoader_ExtractText(t *testing.T) {
	loader := NewLoader(0)

	text, err := loader.ExtractText("upload.md", []byte("# Title\n\nbody"))
	require.NoError(t, err)
	assert.Contains(t, text, "body")

	_, err = loader.ExtractText("upload.exe", []byte("nope"))
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}
