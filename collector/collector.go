// Package collector builds SPDX file and snippet records for a set of
// files and folds their checksums into a package verification code. One
// Collector is one scan session.
package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"sbomgen/filetype"
	"sbomgen/license"
	"sbomgen/logger"
	"sbomgen/scancache"
	"sbomgen/spdx"
)

// DefaultSourceScanLimit is the embedded-license scan ceiling: source files
// at or above this size are not scanned for SPDX-License-Identifier
// declarations.
const DefaultSourceScanLimit int64 = 300 * 1024

// CollectionError is the single error type surfaced by a collection run.
// It chains the root cause.
type CollectionError struct {
	Msg string
	Err error
}

func (e *CollectionError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *CollectionError) Unwrap() error { return e.Err }

func collectionErrorf(err error, format string, args ...interface{}) *CollectionError {
	return &CollectionError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// FileEntry is one resolved file handed to the collector: the absolute
// source path plus the output-relative path the record is named by.
type FileEntry struct {
	Path         string
	RelativePath string
}

// Options configures a collection session.
type Options struct {
	// Classifier maps extensions to file types; nil loads the embedded
	// default tables.
	Classifier *filetype.Classifier
	// SourceScanLimit is the embedded-license scan ceiling in bytes;
	// zero or negative selects DefaultSourceScanLimit.
	SourceScanLimit int64
	// SniffContent upgrades an Other classification via magic bytes.
	SniffContent bool
	// OptionalAlgorithms lists additional checksums computed per file.
	// SHA-1 is always computed and must not be listed here.
	OptionalAlgorithms []string
	// Limiter, when set, throttles per-file reads.
	Limiter *rate.Limiter
	// Cache, when set, reuses SHA-1 checksums of unchanged files.
	Cache *scancache.Cache
}

// Collector accumulates the records of one scan session. Safe for
// concurrent use, though collection itself is sequential.
type Collector struct {
	opts Options

	mu       sync.Mutex
	files    map[string]*spdx.File // keyed by absolute source path
	snippets []*spdx.Snippet
	licenses map[license.Expression]struct{}
}

func New(opts Options) *Collector {
	if opts.Classifier == nil {
		opts.Classifier = filetype.NewDefaultClassifier("")
	}
	if opts.SourceScanLimit <= 0 {
		opts.SourceScanLimit = DefaultSourceScanLimit
	}
	return &Collector{
		opts:     opts,
		files:    make(map[string]*spdx.File),
		licenses: make(map[license.Expression]struct{}),
	}
}

// CollectFiles builds a record for every entry, resolving per-path override
// metadata against pathOverrides and falling back to defaultInfo. The first
// failing file aborts the batch; records collected before the failure are
// kept.
func (c *Collector) CollectFiles(ctx context.Context, entries []FileEntry, defaultInfo *spdx.DefaultFileInformation, pathOverrides map[string]*spdx.DefaultFileInformation, pkg *spdx.Package, relationshipType string) error {
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		info := findFileInfo(overrideKey(entry.RelativePath), pathOverrides)
		if info == nil {
			info = defaultInfo
		}
		if err := c.collectFile(ctx, entry, info, pkg, relationshipType); err != nil {
			return err
		}
	}
	return nil
}

// overrideKey normalizes a relative path into the form override maps are
// keyed by: forward slashes, no "./" prefix.
func overrideKey(relativePath string) string {
	key := strings.ReplaceAll(relativePath, "\\", "/")
	return strings.TrimPrefix(key, "./")
}

func (c *Collector) collectFile(ctx context.Context, entry FileEntry, info *spdx.DefaultFileInformation, pkg *spdx.Package, relationshipType string) error {
	c.mu.Lock()
	_, seen := c.files[entry.Path]
	c.mu.Unlock()
	if seen {
		// Already added by a previous scan.
		return nil
	}

	file, err := c.convertToFile(ctx, entry, info)
	if err != nil {
		return err
	}
	if err := file.AddRelationship(spdx.Relationship{Type: relationshipType, Related: pkg}); err != nil {
		logger.Errorf("SPDX error creating file relationship: %v", err)
		return collectionErrorf(err, "error creating SPDX file relationship")
	}

	var snippets []*spdx.Snippet
	for _, si := range info.Snippets {
		snippet, err := convertToSnippet(si, file)
		if err != nil {
			return err
		}
		snippets = append(snippets, snippet)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[entry.Path] = file
	c.snippets = append(c.snippets, snippets...)
	for _, expr := range file.LicenseInfoInFile {
		c.licenses[expr] = struct{}{}
	}
	c.licenses[file.LicenseConcluded] = struct{}{}
	return nil
}

// Files returns every record built so far, in no particular order.
func (c *Collector) Files() []*spdx.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	files := make([]*spdx.File, 0, len(c.files))
	for _, f := range c.files {
		files = append(files, f)
	}
	return files
}

// Snippets returns the collected snippets in insertion order.
func (c *Collector) Snippets() []*spdx.Snippet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*spdx.Snippet(nil), c.snippets...)
}

// LicenseInfoFromFiles returns the deduplicated set of license expressions
// seen across all collected records.
func (c *Collector) LicenseInfoFromFiles() []license.Expression {
	c.mu.Lock()
	defer c.mu.Unlock()
	exprs := make([]license.Expression, 0, len(c.licenses))
	for expr := range c.licenses {
		exprs = append(exprs, expr)
	}
	return exprs
}
