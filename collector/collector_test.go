package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sbomgen/checksum"
	"sbomgen/filetype"
	"sbomgen/license"
	"sbomgen/scancache"
	"sbomgen/spdx"
)

var testTables = filetype.Tables{
	Source:  []string{"java", "go", "c"},
	Binary:  []string{"dll"},
	Archive: []string{"zip"},
}

func newTestCollector(opts Options) *Collector {
	if opts.Classifier == nil {
		opts.Classifier = filetype.NewClassifier(testTables)
	}
	return New(opts)
}

func testPackage() *spdx.Package {
	return &spdx.Package{SPDXID: "SPDXRef-Package", Name: "demo"}
}

func defaultInfo() *spdx.DefaultFileInformation {
	return &spdx.DefaultFileInformation{
		DeclaredLicense:  license.MustParse("Apache-2.0"),
		ConcludedLicense: license.MustParse("NOASSERTION"),
		Copyright:        "Copyright 2026 Demo Authors",
		Notice:           "notice text",
		Comment:          "default comment",
		Contributors:     []string{"Alice", "Bob"},
	}
}

func writeFile(t *testing.T, dir, rel, content string) FileEntry {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return FileEntry{Path: abs, RelativePath: rel}
}

func collectOne(t *testing.T, c *Collector, entry FileEntry, info *spdx.DefaultFileInformation, overrides map[string]*spdx.DefaultFileInformation) *spdx.File {
	t.Helper()
	err := c.CollectFiles(context.Background(), []FileEntry{entry}, info, overrides, testPackage(), "GENERATED_FROM")
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	files := c.Files()
	if len(files) != 1 {
		t.Fatalf("expected 1 record, got %d", len(files))
	}
	return files[0]
}

func TestEmbeddedIdentifierOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/Main.java",
		"// SPDX-License-Identifier: MIT\npublic class Main {}\n"+strings.Repeat("// filler\n", 100))

	c := newTestCollector(Options{})
	file := collectOne(t, c, entry, defaultInfo(), nil)

	if file.LicenseConcluded.String() != "MIT" {
		t.Errorf("concluded = %s, want MIT", file.LicenseConcluded)
	}
	if len(file.LicenseInfoInFile) != 1 || file.LicenseInfoInFile[0].String() != "MIT" {
		t.Errorf("declared = %v, want [MIT]", file.LicenseInfoInFile)
	}
	if !strings.Contains(file.LicenseComment, "This file contains SPDX-License-Identifiers for MIT") {
		t.Errorf("license comment = %q", file.LicenseComment)
	}
}

func TestMultipleEmbeddedIdentifiersConjoin(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/dual.go",
		"// SPDX-License-Identifier: MIT\n// SPDX-License-Identifier: Apache-2.0\npackage dual\n")

	c := newTestCollector(Options{})
	file := collectOne(t, c, entry, defaultInfo(), nil)

	if file.LicenseConcluded.String() != "(MIT AND Apache-2.0)" {
		t.Errorf("concluded = %s", file.LicenseConcluded)
	}
	if !strings.Contains(file.LicenseComment, "This file contains SPDX-License-Identifiers for (MIT AND Apache-2.0)") {
		t.Errorf("license comment = %q", file.LicenseComment)
	}
}

func TestLicenseCommentAppendsToExisting(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/Main.java", "// SPDX-License-Identifier: MIT\n")

	info := defaultInfo()
	info.LicenseComment = "reviewed by legal"
	c := newTestCollector(Options{})
	file := collectOne(t, c, entry, info, nil)

	want := "reviewed by legal;  This file contains SPDX-License-Identifiers for MIT"
	if file.LicenseComment != want {
		t.Errorf("license comment = %q, want %q", file.LicenseComment, want)
	}
}

func TestLargeSourceFileSkipsEmbeddedScan(t *testing.T) {
	dir := t.TempDir()
	content := "// SPDX-License-Identifier: MIT\n"
	entry := writeFile(t, dir, "src/big.go", content)

	c := newTestCollector(Options{SourceScanLimit: int64(len(content))})
	info := defaultInfo()
	file := collectOne(t, c, entry, info, nil)

	if file.LicenseConcluded.String() != "NOASSERTION" {
		t.Errorf("concluded = %s, want resolved default", file.LicenseConcluded)
	}
	if len(file.LicenseInfoInFile) != 1 || file.LicenseInfoInFile[0].String() != "Apache-2.0" {
		t.Errorf("declared = %v, want [Apache-2.0]", file.LicenseInfoInFile)
	}
	if file.LicenseComment != "" {
		t.Errorf("license comment should be unchanged, got %q", file.LicenseComment)
	}
}

func TestNonSourceFileNotScanned(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "doc/readme.txt", "SPDX-License-Identifier: MIT\n")

	c := newTestCollector(Options{})
	file := collectOne(t, c, entry, defaultInfo(), nil)

	if len(file.Types) != 1 || file.Types[0] != filetype.Other {
		t.Fatalf("types = %v, want [OTHER]", file.Types)
	}
	if file.LicenseConcluded.String() != "NOASSERTION" {
		t.Errorf("concluded = %s, embedded scan must not run for non-source", file.LicenseConcluded)
	}
}

func TestRecordFields(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/plain.go", "package plain\n")

	info := defaultInfo()
	c := newTestCollector(Options{})
	file := collectOne(t, c, entry, info, nil)

	if file.SpdxName != "./src/plain.go" {
		t.Errorf("SpdxName = %q", file.SpdxName)
	}
	if file.Copyright != info.Copyright || file.Notice != info.Notice || file.Comment != info.Comment {
		t.Errorf("metadata not copied verbatim: %+v", file)
	}
	if len(file.Contributors) != 2 || file.Contributors[0] != "Alice" {
		t.Errorf("contributors = %v", file.Contributors)
	}
	want, err := checksum.SHA1Hex(entry.Path)
	if err != nil {
		t.Fatalf("SHA1Hex: %v", err)
	}
	if file.Sha1 != want {
		t.Errorf("sha1 = %s, want %s", file.Sha1, want)
	}
	if len(file.Relationships) != 1 || file.Relationships[0].Type != "GENERATED_FROM" {
		t.Errorf("relationships = %+v", file.Relationships)
	}
}

func TestRescanIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/a.go", "package a\n")

	c := newTestCollector(Options{})
	ctx := context.Background()
	entries := []FileEntry{entry, entry}
	if err := c.CollectFiles(ctx, entries, defaultInfo(), nil, testPackage(), "CONTAINS"); err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	if err := c.CollectFiles(ctx, entries, defaultInfo(), nil, testPackage(), "CONTAINS"); err != nil {
		t.Fatalf("second CollectFiles: %v", err)
	}
	if len(c.Files()) != 1 {
		t.Fatalf("expected 1 record after rescans, got %d", len(c.Files()))
	}
}

func TestLicenseSetDeduplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", "// SPDX-License-Identifier: MIT\npackage a\n")
	b := writeFile(t, dir, "b.go", "// SPDX-License-Identifier: MIT\npackage b\n")

	c := newTestCollector(Options{})
	err := c.CollectFiles(context.Background(), []FileEntry{a, b}, defaultInfo(), nil, testPackage(), "CONTAINS")
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	seen := c.LicenseInfoFromFiles()
	if len(seen) != 1 || seen[0].String() != "MIT" {
		t.Fatalf("license set = %v, want [MIT]", seen)
	}
}

func TestSnippetsBoundToFile(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/mix.c", "int main() { return 0; }\n")

	info := defaultInfo()
	info.Snippets = []spdx.SnippetInfo{{
		Name:                 "vendored-parser",
		Comment:              "imported from upstream",
		ConcludedLicense:     "BSD-2-Clause",
		LicenseInfoInSnippet: []string{"BSD-2-Clause"},
		ByteStart:            0,
		ByteEnd:              24,
		LineStart:            1,
		LineEnd:              1,
	}}

	c := newTestCollector(Options{})
	file := collectOne(t, c, entry, info, nil)

	snippets := c.Snippets()
	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
	sn := snippets[0]
	if sn.FromFile != file {
		t.Error("snippet not bound to its file record")
	}
	if sn.LicenseConcluded.String() != "BSD-2-Clause" {
		t.Errorf("snippet concluded = %s", sn.LicenseConcluded)
	}
	if sn.ByteRange != (spdx.Range{Start: 0, End: 24}) {
		t.Errorf("byte range = %+v", sn.ByteRange)
	}
}

func TestInvalidSnippetLicenseAbortsFile(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "src/bad.c", "int x;\n")

	info := defaultInfo()
	info.Snippets = []spdx.SnippetInfo{{
		Name:             "broken",
		ConcludedLicense: "MIT &&",
		ByteEnd:          4,
		LineEnd:          1,
	}}

	c := newTestCollector(Options{})
	err := c.CollectFiles(context.Background(), []FileEntry{entry}, info, nil, testPackage(), "CONTAINS")
	var ce *CollectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollectionError, got %v", err)
	}
	if !errors.Is(err, license.ErrInvalidExpression) {
		t.Errorf("expected chained ErrInvalidExpression, got %v", err)
	}
	if len(c.Files()) != 0 {
		t.Error("failed file must not be recorded")
	}
}

func TestUnreadableFileAbortsBatch(t *testing.T) {
	dir := t.TempDir()
	ok := writeFile(t, dir, "ok.go", "package ok\n")
	missing := FileEntry{Path: filepath.Join(dir, "gone.go"), RelativePath: "gone.go"}

	c := newTestCollector(Options{})
	err := c.CollectFiles(context.Background(), []FileEntry{ok, missing}, defaultInfo(), nil, testPackage(), "CONTAINS")
	var ce *CollectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollectionError, got %v", err)
	}
	// Records collected before the failure remain.
	if len(c.Files()) != 1 {
		t.Fatalf("expected the successful record to remain, got %d", len(c.Files()))
	}
}

func TestOptionalChecksums(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "data.bin", "payload")

	c := newTestCollector(Options{OptionalAlgorithms: []string{"SHA-256", "MD5"}})
	file := collectOne(t, c, entry, defaultInfo(), nil)

	if len(file.OptionalChecksums) != 2 {
		t.Fatalf("expected 2 optional checksums, got %+v", file.OptionalChecksums)
	}
	want, _ := checksum.OptionalHex(entry.Path, "SHA-256")
	if file.OptionalChecksums[0].Algorithm != "SHA-256" || file.OptionalChecksums[0].Value != want {
		t.Errorf("unexpected optional checksum: %+v", file.OptionalChecksums[0])
	}
}

func TestUnsupportedOptionalAlgorithmAborts(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "data.bin", "payload")

	c := newTestCollector(Options{OptionalAlgorithms: []string{"SHA3-256"}})
	err := c.CollectFiles(context.Background(), []FileEntry{entry}, defaultInfo(), nil, testPackage(), "CONTAINS")
	if !errors.Is(err, checksum.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestCacheReusesChecksums(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "cached.go", "package cached\n")

	cache := scancache.New()
	first := newTestCollector(Options{Cache: cache})
	want := collectOne(t, first, entry, defaultInfo(), nil).Sha1
	if cache.Len() != 1 {
		t.Fatalf("expected 1 cache entry, got %d", cache.Len())
	}

	second := newTestCollector(Options{Cache: cache})
	got := collectOne(t, second, entry, defaultInfo(), nil).Sha1
	if got != want {
		t.Errorf("cached sha1 = %s, want %s", got, want)
	}
}

func TestCanceledContextStopsBatch(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "x.go", "package x\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestCollector(Options{})
	err := c.CollectFiles(ctx, []FileEntry{entry}, defaultInfo(), nil, testPackage(), "CONTAINS")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConvertFilePathToSpdxFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`src\main\java\App.java`, "./src/main/java/App.java"},
		{"src/App.java", "./src/App.java"},
		{"./already/prefixed", "./already/prefixed"},
	}
	for _, tc := range cases {
		got := ConvertFilePathToSpdxFileName(tc.in)
		if got != tc.want {
			t.Errorf("ConvertFilePathToSpdxFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
		// Applying the conversion twice must be a no-op.
		if again := ConvertFilePathToSpdxFileName(got); again != got {
			t.Errorf("not idempotent: %q -> %q", got, again)
		}
	}
}
