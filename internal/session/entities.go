package session

import (
	"os"
	"regexp"
)

var (
	filePathRe  = regexp.MustCompile(`/[\w/\.-]+\.\w+`)
	dirPathRe   = regexp.MustCompile(`/[\w/\.-]+/?`)
	repoRe      = regexp.MustCompile(`(?:github\.com/|https://github\.com/)[\w-]+/[\w-]+`)
	extensionRe = regexp.MustCompile(`\.([a-zA-Z0-9]+)\b`)
)

const maxExtensionLen = 5

// ExtractEntities records the files, directories, repositories and file
// extensions mentioned in query. Paths are only recorded when they exist.
func (s *Session) ExtractEntities(query string) {
	for _, path := range filePathRe.FindAllString(query, -1) {
		if _, err := os.Stat(path); err == nil {
			s.AddEntity("file", path, map[string]any{"exists": true})
		}
	}
	for _, path := range dirPathRe.FindAllString(query, -1) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			s.AddEntity("directory", path, map[string]any{"exists": true})
		}
	}
	for _, repo := range repoRe.FindAllString(query, -1) {
		s.AddEntity("repository", repo, nil)
	}
	for _, m := range extensionRe.FindAllStringSubmatch(query, -1) {
		if len(m[1]) <= maxExtensionLen {
			s.AddEntity("extension", "."+m[1], nil)
		}
	}
}
