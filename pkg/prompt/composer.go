// Package prompt loads named prompt fragments and composes them into a
// single system prompt.
package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Separator joins fragment contents in the composed prompt.
const Separator = "\n\n"

// FragmentNotFoundError is returned when a named fragment has no file
// under the prompts root.
type FragmentNotFoundError struct {
	Name string
	Err  error
}

func (e *FragmentNotFoundError) Error() string {
	return fmt.Sprintf("prompt: fragment %q not found: %v", e.Name, e.Err)
}

func (e *FragmentNotFoundError) Unwrap() error { return e.Err }

// Composer resolves fragment names against a prompts directory and
// memoizes fragment contents for the lifetime of one run.
//
// A Composer is not safe for concurrent use; composition happens once,
// before any worker starts.
type Composer struct {
	root  string
	cache map[string]string
}

// NewComposer creates a Composer rooted at the given prompts directory.
func NewComposer(root string) *Composer {
	return &Composer{
		root:  root,
		cache: make(map[string]string),
	}
}

// Compose loads each named fragment and concatenates the contents in
// order, joined by a blank line. A name appearing more than once is read
// from disk only once; its content still appears at every position.
func (c *Composer) Compose(names []string) (string, error) {
	if len(names) == 0 {
		return "", errors.New("prompt: no fragment names given")
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		content, err := c.load(name)
		if err != nil {
			return "", err
		}
		parts = append(parts, content)
	}

	return strings.Join(parts, Separator), nil
}

// load returns the fragment content, reading the file at most once.
func (c *Composer) load(name string) (string, error) {
	if content, ok := c.cache[name]; ok {
		return content, nil
	}

	data, err := os.ReadFile(filepath.Join(c.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &FragmentNotFoundError{Name: name, Err: err}
		}
		return "", fmt.Errorf("prompt: read fragment %q: %w", name, err)
	}

	content := string(data)
	c.cache[name] = content
	return content, nil
}
