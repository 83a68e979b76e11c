// Package spdx holds the document model the collector produces: file and
// snippet records, package handles, relationships and the package
// verification code.
package spdx

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"sbomgen/filetype"
	"sbomgen/license"
)

// ErrInvalidRecord marks a record that fails model validation.
var ErrInvalidRecord = errors.New("invalid record")

var sha1Re = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Checksum is an optional (non-SHA-1) file digest.
type Checksum struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"checksumValue"`
}

// Package is a handle to the package record owning the collected files.
type Package struct {
	SPDXID string `json:"SPDXID"`
	Name   string `json:"name"`
}

// Relationship is a typed link from a file to a package, e.g. GENERATED_FROM
// or CONTAINS.
type Relationship struct {
	Type    string   `json:"relationshipType"`
	Related *Package `json:"-"`
	Comment string   `json:"comment,omitempty"`
}

// File is one collected file record. Records are immutable once built; the
// collector is their only producer.
type File struct {
	// SpdxName is the archive-relative name, forward-slash separated and
	// prefixed "./". The absolute source path is deliberately not part of
	// the record.
	SpdxName          string               `json:"fileName"`
	Types             []filetype.Type      `json:"fileTypes"`
	Sha1              string               `json:"sha1"`
	OptionalChecksums []Checksum           `json:"checksums,omitempty"`
	LicenseConcluded  license.Expression   `json:"licenseConcluded"`
	LicenseInfoInFile []license.Expression `json:"licenseInfoInFiles"`
	LicenseComment    string               `json:"licenseComments,omitempty"`
	Copyright         string               `json:"copyrightText,omitempty"`
	Notice            string               `json:"noticeText,omitempty"`
	Comment           string               `json:"comment,omitempty"`
	Contributors      []string             `json:"fileContributors,omitempty"`
	Relationships     []Relationship       `json:"-"`
}

// NewFile validates and builds a file record.
func NewFile(name string, types []filetype.Type, sha1 string, concluded license.Expression, infoInFile []license.Expression, licenseComment, copyright, notice, comment string, contributors []string) (*File, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: file name is empty", ErrInvalidRecord)
	}
	if strings.ContainsRune(name, '\\') {
		return nil, fmt.Errorf("%w: file name %q contains a backslash", ErrInvalidRecord, name)
	}
	if !sha1Re.MatchString(sha1) {
		return nil, fmt.Errorf("%w: %q is not a 40 character lowercase hex SHA-1", ErrInvalidRecord, sha1)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: file %s has no file type", ErrInvalidRecord, name)
	}
	if concluded.IsZero() {
		return nil, fmt.Errorf("%w: file %s has no concluded license", ErrInvalidRecord, name)
	}
	if len(infoInFile) == 0 {
		return nil, fmt.Errorf("%w: file %s has no license info", ErrInvalidRecord, name)
	}
	return &File{
		SpdxName:          name,
		Types:             types,
		Sha1:              sha1,
		LicenseConcluded:  concluded,
		LicenseInfoInFile: infoInFile,
		LicenseComment:    licenseComment,
		Copyright:         copyright,
		Notice:            notice,
		Comment:           comment,
		Contributors:      contributors,
	}, nil
}

// AddRelationship attaches a relationship to the owning package.
func (f *File) AddRelationship(rel Relationship) error {
	if rel.Related == nil {
		return fmt.Errorf("%w: relationship on %s has no related package", ErrInvalidRecord, f.SpdxName)
	}
	if rel.Type == "" {
		return fmt.Errorf("%w: relationship on %s has no type", ErrInvalidRecord, f.SpdxName)
	}
	f.Relationships = append(f.Relationships, rel)
	return nil
}

// PackageVerificationCode is the SHA-1 aggregate over all included file
// checksums plus the literal list of excluded file names.
type PackageVerificationCode struct {
	Value             string   `json:"packageVerificationCodeValue"`
	ExcludedFileNames []string `json:"packageVerificationCodeExcludedFiles,omitempty"`
}
