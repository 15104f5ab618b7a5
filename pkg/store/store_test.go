package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, prefix string) (*FileStore, string, string) {
	t.Helper()
	input := t.TempDir()
	output := t.TempDir()
	return NewFileStore(input, output, prefix), input, output
}

func TestListDocuments_SkipsDirectories(t *testing.T) {
	s, input, _ := newTestStore(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(input, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(input, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "nested", "c.txt"), []byte("c"), 0o644))

	docs, err := s.ListDocuments()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, docs)
}

func TestListDocuments_EmptyDir(t *testing.T) {
	s, _, _ := newTestStore(t, "")
	docs, err := s.ListDocuments()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListDocuments_MissingDir(t *testing.T) {
	s := NewFileStore("/does/not/exist", t.TempDir(), "")
	_, err := s.ListDocuments()
	require.Error(t, err)
}

func TestReadDocument_UTF8(t *testing.T) {
	s, input, _ := newTestStore(t, "")
	require.NoError(t, os.WriteFile(filepath.Join(input, "doc.txt"), []byte("héllo"), 0o644))

	content, err := s.ReadDocument("doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "héllo", content)
}

func TestReadDocument_Latin1Fallback(t *testing.T) {
	s, input, _ := newTestStore(t, "")
	// "café" encoded as Latin-1: 0xE9 is not valid UTF-8.
	require.NoError(t, os.WriteFile(filepath.Join(input, "doc.txt"), []byte{'c', 'a', 'f', 0xE9}, 0o644))

	content, err := s.ReadDocument("doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "café", content)
}

func TestReadDocument_Missing(t *testing.T) {
	s, _, _ := newTestStore(t, "")
	_, err := s.ReadDocument("ghost.txt")
	require.Error(t, err)
}

func TestWriteOutput_DerivesNameFromInput(t *testing.T) {
	s, _, output := newTestStore(t, "")
	path, err := s.WriteOutput("doc.txt", "result")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(output, "doc.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "result", string(data))
}

func TestWriteOutput_AppliesPrefix(t *testing.T) {
	s, _, output := newTestStore(t, "response_")
	path, err := s.WriteOutput("doc.txt", "result")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(output, "response_doc.txt"), path)
}

func TestWriteOutput_Overwrites(t *testing.T) {
	s, _, _ := newTestStore(t, "")
	_, err := s.WriteOutput("doc.txt", "first")
	require.NoError(t, err)
	path, err := s.WriteOutput("doc.txt", "second")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriteOutput_MissingOutputDir(t *testing.T) {
	s := NewFileStore(t.TempDir(), "/does/not/exist", "")
	_, err := s.WriteOutput("doc.txt", "result")
	require.Error(t, err)
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	s := NewFileStore(filepath.Join(base, "in"), filepath.Join(base, "out"), "")
	require.NoError(t, s.EnsureDirs())

	info, err := os.Stat(filepath.Join(base, "out"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
