package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFragment(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCompose_JoinsFragmentsWithBlankLine(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "tone.txt", "Be concise.")
	writeFragment(t, dir, "task.txt", "Summarize the document.")

	c := NewComposer(dir)
	got, err := c.Compose([]string{"tone.txt", "task.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Be concise.\n\nSummarize the document.", got)
}

func TestCompose_SingleFragmentHasNoSeparator(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "only.txt", "Just this.")

	c := NewComposer(dir)
	got, err := c.Compose([]string{"only.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Just this.", got)
}

func TestCompose_MissingFragment(t *testing.T) {
	c := NewComposer(t.TempDir())
	_, err := c.Compose([]string{"nope.txt"})

	var notFound *FragmentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope.txt", notFound.Name)
}

func TestCompose_EmptyNameList(t *testing.T) {
	c := NewComposer(t.TempDir())
	_, err := c.Compose(nil)
	require.Error(t, err)
}

func TestCompose_DuplicateNameReadsOnce(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "rules.txt", "original")

	c := NewComposer(dir)
	got, err := c.Compose([]string{"rules.txt", "rules.txt"})
	require.NoError(t, err)
	assert.Equal(t, "original\n\noriginal", got)

	// Change the file on disk; the cached content must still be served,
	// proving the first read was the only read.
	writeFragment(t, dir, "rules.txt", "changed")
	got, err = c.Compose([]string{"rules.txt"})
	require.NoError(t, err)
	assert.Equal(t, "original", got)
}
