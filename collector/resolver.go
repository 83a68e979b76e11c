package collector

import (
	"strings"

	"sbomgen/logger"
	"sbomgen/spdx"
)

// findFileInfo returns the most specific override for a relative path: an
// exact match first, then the nearest enclosing directory, walking up one
// segment at a time. Nil when nothing matches; the caller substitutes the
// package-wide default.
func findFileInfo(relativePath string, overrides map[string]*spdx.DefaultFileInformation) *spdx.DefaultFileInformation {
	if len(overrides) == 0 {
		return nil
	}
	if info, ok := overrides[relativePath]; ok {
		logger.Debugf("Found path specific information for %s", relativePath)
		return info
	}
	segments := strings.Split(relativePath, "/")
	for n := len(segments) - 1; n > 0; n-- {
		prefix := strings.Join(segments[:n], "/")
		if info, ok := overrides[prefix]; ok {
			logger.Debugf("Found directory containing path specific information: %s", prefix)
			return info
		}
	}
	return nil
}
