package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "print(1)")
	writeFile(t, filepath.Join(root, "pkg", "b.py"), "x = 2")
	writeFile(t, filepath.Join(root, "pkg", "c.md"), "# doc")
	writeFile(t, filepath.Join(root, ".git", "config.py"), "ignored")

	paths, err := Collect(root, []string{".py"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.py"), filepath.Join(root, "pkg", "b.py")}, paths)

	all, err := Collect(root, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	single, err := Collect(filepath.Join(root, "pkg", "c.md"), []string{".md"})
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = Collect(filepath.Join(root, "missing"), nil)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	out := Render("Header\n", []File{
		{Path: "/x/a.py", Content: "print(1)"},
		{Path: "/x/b.py", Err: errors.New("permission denied")},
	})
	assert.True(t, strings.HasPrefix(out, "Header\n"))
	assert.Contains(t, out, "\n---- /x/a.py ----\n\nprint(1)\n")
	assert.Contains(t, out, "\n---- /x/b.py ----\nError reading file: permission denied\n")
	assert.Equal(t, 2, strings.Count(out, "---- /x/"))
}

func TestTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")

	tree := Tree(root)
	assert.Contains(t, tree, "Directory Structure:\n")
	assert.Contains(t, tree, "    src/\n")
	assert.Contains(t, tree, "        main.go\n")
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "extractions")
	now := time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local)

	path, err := Save(dir, "extracted", "body", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "extracted_20240309_140506.txt"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
}

func TestFormatExtensions(t *testing.T) {
	assert.Equal(t, "All files", FormatExtensions(nil))
	assert.Equal(t, "['.py', '.md']", FormatExtensions([]string{".py", ".md"}))
	assert.True(t, MatchExt("x.go", nil))
	assert.False(t, MatchExt("x.go", []string{".py"}))
}
