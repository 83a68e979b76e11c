package utils

import (
	"path/filepath"
	"strings"
)

// IsPathWithin reports whether path resolves inside any of the given roots.
// Symlinks are resolved on both sides before comparing.
func IsPathWithin(path string, roots []string) bool {
	absPath, ok := resolveAbs(path)
	if !ok {
		return false
	}
	for _, root := range roots {
		absRoot, ok := resolveAbs(root)
		if !ok {
			continue
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func resolveAbs(path string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
