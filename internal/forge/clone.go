package forge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"fixter/pkg/logger"
)

// RepoName returns the last path segment of a git URL without ".git".
func RepoName(gitURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(gitURL), "/")
	name := trimmed[strings.LastIndexAny(trimmed, "/:")+1:]
	return strings.TrimSuffix(name, ".git")
}

// Clone makes a shallow clone of gitURL under dir and returns the
// checkout path. An existing checkout is reused.
func Clone(ctx context.Context, gitURL, dir string) (string, error) {
	dest := filepath.Join(dir, RepoName(gitURL))
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		logger.Info().Str("path", dest).Msg("Reusing existing clone")
		return dest, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create clone dir: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", gitURL, dest)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git clone %s: %w: %s", gitURL, err, strings.TrimSpace(stderr.String()))
	}
	return dest, nil
}
