// Package filetype classifies files into the coarse SPDX file-type
// categories using configurable extension tables, with an optional
// magic-byte refinement for files no table recognizes.
package filetype

import (
	_ "embed"
	"io"
	"os"
	"path/filepath"
	"strings"

	h2non "github.com/h2non/filetype"
	"gopkg.in/yaml.v2"

	"sbomgen/logger"
)

// Type is a coarse SPDX file-type category.
type Type string

const (
	Source  Type = "SOURCE"
	Binary  Type = "BINARY"
	Archive Type = "ARCHIVE"
	Other   Type = "OTHER"
)

// Tables holds the raw extension lists for each category, without dots.
type Tables struct {
	Source  []string `yaml:"source"`
	Binary  []string `yaml:"binary"`
	Archive []string `yaml:"archive"`
}

//go:embed tables.yaml
var defaultTables []byte

// LoadTables reads extension tables from the given YAML file, or from the
// embedded default resource when path is empty.
func LoadTables(path string) (Tables, error) {
	data := defaultTables
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Tables{}, err
		}
		data = b
	}
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Classifier maps file extensions to types. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	source  map[string]struct{}
	binary  map[string]struct{}
	archive map[string]struct{}
}

// NewClassifier builds a classifier from extension tables. Extensions are
// upper-cased and trimmed on load.
func NewClassifier(t Tables) *Classifier {
	return &Classifier{
		source:  toSet(t.Source),
		binary:  toSet(t.Binary),
		archive: toSet(t.Archive),
	}
}

// NewDefaultClassifier loads the embedded tables, or the override file when
// path is non-empty. A load failure is logged and yields an empty classifier,
// which maps every extension to Other.
func NewDefaultClassifier(path string) *Classifier {
	t, err := LoadTables(path)
	if err != nil {
		logger.Warnf("Error reading file type tables, all file types will be mapped to Other: %v", err)
		return NewClassifier(Tables{})
	}
	return NewClassifier(t)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// Classify maps an extension (without dot) to its type. Matching is
// case-insensitive; an empty extension is Other.
func (c *Classifier) Classify(ext string) Type {
	if ext == "" {
		return Other
	}
	upper := strings.ToUpper(ext)
	if _, ok := c.source[upper]; ok {
		return Source
	}
	if _, ok := c.binary[upper]; ok {
		return Binary
	}
	if _, ok := c.archive[upper]; ok {
		return Archive
	}
	return Other
}

// Ext returns the extension of the file named by path without the leading
// dot. Dotfiles such as .gitignore have no extension.
func Ext(path string) string {
	name := filepath.Base(path)
	lastDot := strings.LastIndexByte(name, '.')
	if lastDot < 1 {
		return ""
	}
	return name[lastDot+1:]
}

// Sniff inspects the file's leading bytes and reports Archive or Binary when
// a known signature matches. Unreadable or unrecognized content is Other.
func Sniff(path string) Type {
	f, err := os.Open(path)
	if err != nil {
		return Other
	}
	defer f.Close()

	buf := make([]byte, 261)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return Other
	}
	head := buf[:n]
	if h2non.IsArchive(head) {
		return Archive
	}
	if kind, err := h2non.Match(head); err == nil && kind != h2non.Unknown {
		return Binary
	}
	return Other
}
