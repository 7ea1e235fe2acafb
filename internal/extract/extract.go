// Package extract walks directory trees and renders matched files into a
// single text document.
package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// File is one rendered source file.
type File struct {
	Path    string
	Content string
	Err     error
}

// MatchExt reports whether name ends with one of exts. An empty exts
// matches everything.
func MatchExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Collect returns the files under root whose names match exts, in walk
// order. Version control directories are skipped. A root that is a
// regular file is matched on its own.
func Collect(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if MatchExt(root, exts) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && MatchExt(d.Name(), exts) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// ReadAll loads every path. Read failures are kept on the File.
func ReadAll(paths []string) []File {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		files = append(files, File{Path: p, Content: strings.ToValidUTF8(string(data), ""), Err: err})
	}
	return files
}

// Render concatenates files as "---- path ----" sections after header.
func Render(header string, files []File) string {
	var b strings.Builder
	b.WriteString(header)
	for _, f := range files {
		if f.Err != nil {
			fmt.Fprintf(&b, "\n---- %s ----\nError reading file: %v\n", f.Path, f.Err)
			continue
		}
		fmt.Fprintf(&b, "\n---- %s ----\n\n%s\n", f.Path, f.Content)
	}
	return b.String()
}

// Tree renders an indented listing of root, four spaces per level.
func Tree(root string) string {
	var b strings.Builder
	b.WriteString("Directory Structure:\n")

	type entry struct {
		rel   string
		depth int
		dir   bool
	}
	var entries []entry
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" && path != root {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(root, path)
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(filepath.Separator)) + 1
		}
		entries = append(entries, entry{rel: path, depth: depth, dir: d.IsDir()})
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	for _, e := range entries {
		indent := strings.Repeat("    ", e.depth)
		if e.dir {
			fmt.Fprintf(&b, "%s%s/\n", indent, filepath.Base(e.rel))
		} else {
			fmt.Fprintf(&b, "%s%s\n", indent, filepath.Base(e.rel))
		}
	}
	return b.String()
}

// Save writes content to dir/<prefix>_<YYYYmmdd_HHMMSS>.txt and returns
// the path.
func Save(dir, prefix, content string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create extraction dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", prefix, now.Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write extraction: %w", err)
	}
	return path, nil
}

// FormatExtensions renders the extension filter the way the completion
// banners show it.
func FormatExtensions(exts []string) string {
	if len(exts) == 0 {
		return "All files"
	}
	quoted := make([]string, len(exts))
	for i, e := range exts {
		quoted[i] = "'" + e + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
