package util

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandUser replaces a leading ~/ in path with the user's home directory.
// Paths are returned unchanged when the home directory is unknown.
func ExpandUser(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
