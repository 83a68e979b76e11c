package license

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Marker is the in-source declaration prefix for embedded license
// identifiers.
const Marker = "SPDX-License-Identifier:"

var markerRe = regexp.MustCompile(Marker + `[ \t]*([^\r\n]+)`)

// ScanFile extracts every embedded license identifier declaration from the
// file. Files whose size is at or above maxBytes (when positive) are never
// read; the scan is skipped and nil is returned. A declaration that fails
// to parse makes the whole scan fail.
func ScanFile(path string, maxBytes int64) ([]Expression, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && info.Size() >= maxBytes {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var found []Expression
	for _, m := range markerRe.FindAllStringSubmatch(string(data), -1) {
		raw := trimCommentClose(m[1])
		if raw == "" {
			return nil, fmt.Errorf("%w: empty %s declaration in %s", ErrInvalidExpression, Marker, path)
		}
		expr, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		found = append(found, expr)
	}
	return found, nil
}

// trimCommentClose cuts trailing comment terminators so declarations inside
// block comments parse cleanly.
func trimCommentClose(s string) string {
	for _, closer := range []string{"*/", "-->", "*)", "}"} {
		if i := strings.Index(s, closer); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
