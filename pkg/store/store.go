// Package store handles input document enumeration and output persistence.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FileStore lists documents under an input directory and writes responses
// to an output directory. Output names derive 1:1 from input base names,
// optionally with a fixed prefix.
type FileStore struct {
	inputRoot  string
	outputRoot string
	prefix     string
}

// NewFileStore creates a FileStore. prefix may be empty.
func NewFileStore(inputRoot, outputRoot, prefix string) *FileStore {
	return &FileStore{
		inputRoot:  inputRoot,
		outputRoot: outputRoot,
		prefix:     prefix,
	}
}

// EnsureDirs creates the input and output directories if they do not exist.
func (s *FileStore) EnsureDirs() error {
	for _, dir := range []string{s.inputRoot, s.outputRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ListDocuments returns the names of regular files directly under the
// input root. Subdirectories are not recursed. Enumeration order is
// platform-dependent; callers needing determinism must sort.
func (s *FileStore) ListDocuments() ([]string, error) {
	entries, err := os.ReadDir(s.inputRoot)
	if err != nil {
		return nil, fmt.Errorf("store: list documents in %s: %w", s.inputRoot, err)
	}

	var docs []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		docs = append(docs, e.Name())
	}
	return docs, nil
}

// ReadDocument reads a document as UTF-8. Content that is not valid
// UTF-8 is decoded as Latin-1 instead, so a read never fails purely on
// encoding.
func (s *FileStore) ReadDocument(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.inputRoot, name))
	if err != nil {
		return "", fmt.Errorf("store: read document %q: %w", name, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("store: decode document %q: %w", name, err)
	}
	return string(decoded), nil
}

// OutputPath returns the output location derived from a document name.
func (s *FileStore) OutputPath(name string) string {
	return filepath.Join(s.outputRoot, s.prefix+filepath.Base(name))
}

// WriteOutput writes response text to the output location derived from
// the document name, overwriting any existing file. It returns the path
// written.
func (s *FileStore) WriteOutput(name, text string) (string, error) {
	out := s.OutputPath(name)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("store: write output %s: %w", out, err)
	}
	return out, nil
}
