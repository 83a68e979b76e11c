package spdx

import (
	"fmt"

	"sbomgen/license"
)

// Range is a byte or line span within a file.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (r Range) valid() bool {
	return r.Start >= 0 && r.End >= r.Start
}

// Snippet is a sub-range of a file carrying its own license and copyright
// attribution. A snippet is bound to exactly one file record.
type Snippet struct {
	Name                 string               `json:"name"`
	Comment              string               `json:"comment,omitempty"`
	LicenseConcluded     license.Expression   `json:"licenseConcluded"`
	LicenseInfoInSnippet []license.Expression `json:"licenseInfoInSnippets,omitempty"`
	Copyright            string               `json:"copyrightText,omitempty"`
	LicenseComment       string               `json:"licenseComments,omitempty"`
	ByteRange            Range                `json:"byteRange"`
	LineRange            Range                `json:"lineRange"`
	FromFile             *File                `json:"-"`
}

// NewSnippet validates and builds a snippet bound to an existing file
// record.
func NewSnippet(name, comment string, concluded license.Expression, infoInSnippet []license.Expression, copyright, licenseComment string, byteRange, lineRange Range, fromFile *File) (*Snippet, error) {
	if fromFile == nil {
		return nil, fmt.Errorf("%w: snippet %s is not bound to a file", ErrInvalidRecord, name)
	}
	if concluded.IsZero() {
		return nil, fmt.Errorf("%w: snippet %s has no concluded license", ErrInvalidRecord, name)
	}
	if !byteRange.valid() {
		return nil, fmt.Errorf("%w: snippet %s byte range %d..%d", ErrInvalidRecord, name, byteRange.Start, byteRange.End)
	}
	if !lineRange.valid() {
		return nil, fmt.Errorf("%w: snippet %s line range %d..%d", ErrInvalidRecord, name, lineRange.Start, lineRange.End)
	}
	return &Snippet{
		Name:                 name,
		Comment:              comment,
		LicenseConcluded:     concluded,
		LicenseInfoInSnippet: infoInSnippet,
		Copyright:            copyright,
		LicenseComment:       licenseComment,
		ByteRange:            byteRange,
		LineRange:            lineRange,
		FromFile:             fromFile,
	}, nil
}

// SnippetInfo is the externally supplied description of a snippet inside a
// DefaultFileInformation bundle. License fields stay as literal strings and
// are parsed when the snippet is bound to its file.
type SnippetInfo struct {
	Name                 string   `json:"name"`
	Comment              string   `json:"comment,omitempty"`
	ConcludedLicense     string   `json:"concluded_license"`
	LicenseInfoInSnippet []string `json:"license_info_in_snippet,omitempty"`
	Copyright            string   `json:"copyright,omitempty"`
	LicenseComment       string   `json:"license_comment,omitempty"`
	ByteStart            int64    `json:"byte_start"`
	ByteEnd              int64    `json:"byte_end"`
	LineStart            int64    `json:"line_start"`
	LineEnd              int64    `json:"line_end"`
}

// DefaultFileInformation is the per-package or per-path override bundle of
// SPDX field defaults applied to collected files. The collector only reads
// it.
type DefaultFileInformation struct {
	DeclaredLicense  license.Expression
	ConcludedLicense license.Expression
	Copyright        string
	Notice           string
	Comment          string
	LicenseComment   string
	Contributors     []string
	Snippets         []SnippetInfo
}
