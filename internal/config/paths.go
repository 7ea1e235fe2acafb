// Package config provides configuration loading and path utilities.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the fixter home directory (~/.fixter).
const HomeEnv = "FIXTER_HOME"

// DefaultConfigDir returns the fixter home: $FIXTER_HOME when set,
// otherwise ~/.fixter.
func DefaultConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return ExpandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".fixter"), nil
}

// DefaultConfigPath returns <home>/config.yaml.
func DefaultConfigPath() (string, error) {
	return inConfigDir("config.yaml")
}

// DefaultDataPath returns the sqlite database path, <home>/fixter.db.
func DefaultDataPath() (string, error) {
	return inConfigDir("fixter.db")
}

// DefaultWorkspaceDir returns the default master folder for extractions
// and clones, <home>/workspace.
func DefaultWorkspaceDir() (string, error) {
	return inConfigDir("workspace")
}

func inConfigDir(name string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ExpandPath expands a leading ~ to the user home directory and cleans
// the result. Only "~" and "~/..." are expanded.
func ExpandPath(path string) (string, error) {
	switch {
	case path == "":
		return "", nil
	case path == "~" || strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	default:
		return filepath.Clean(path), nil
	}
}
