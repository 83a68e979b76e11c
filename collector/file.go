package collector

import (
	"context"
	"os"
	"strings"

	"sbomgen/checksum"
	"sbomgen/filetype"
	"sbomgen/license"
	"sbomgen/logger"
	"sbomgen/scancache"
	"sbomgen/spdx"
)

var noAssertion = license.MustParse("NOASSERTION")

// ConvertFilePathToSpdxFileName turns a system-specific relative path into
// the SPDX file name form: forward slashes, "./" prefix. Idempotent.
func ConvertFilePathToSpdxFileName(filePath string) string {
	result := strings.ReplaceAll(filePath, "\\", "/")
	if !strings.HasPrefix(result, "./") {
		result = "./" + result
	}
	return result
}

func (c *Collector) convertToFile(ctx context.Context, entry FileEntry, info *spdx.DefaultFileInformation) (*spdx.File, error) {
	spdxName := ConvertFilePathToSpdxFileName(entry.RelativePath)

	fileType := c.opts.Classifier.Classify(filetype.Ext(entry.Path))
	if fileType == filetype.Other && c.opts.SniffContent {
		fileType = filetype.Sniff(entry.Path)
	}

	var size int64 = -1
	if fi, err := os.Stat(entry.Path); err == nil {
		size = fi.Size()
	}

	sha1, err := c.sha1For(ctx, entry.Path)
	if err != nil {
		return nil, collectionErrorf(err, "unable to calculate SHA-1 for %s", entry.Path)
	}

	var optional []spdx.Checksum
	for _, algorithm := range c.opts.OptionalAlgorithms {
		value, err := checksum.OptionalHex(entry.Path, algorithm)
		if err != nil {
			return nil, collectionErrorf(err, "unable to calculate %s checksum for %s", algorithm, entry.Path)
		}
		optional = append(optional, spdx.Checksum{Algorithm: algorithm, Value: value})
	}

	licenseComment := info.LicenseComment
	var declared, concluded license.Expression
	if fileType == filetype.Source && size >= 0 && size < c.opts.SourceScanLimit {
		found, err := license.ScanFile(entry.Path, c.opts.SourceScanLimit)
		if err != nil {
			// Degrade to "no embedded licenses found".
			logger.Errorf("Error parsing %s for SPDX license identifiers: %v", entry.Path, err)
			found = nil
		}
		if len(found) > 0 {
			declared = license.Conjunction(found)
			concluded = declared
			if licenseComment != "" {
				licenseComment += ";  "
			}
			licenseComment += "This file contains SPDX-License-Identifiers for " + declared.String()
		}
	}
	if declared.IsZero() {
		declared = info.DeclaredLicense
		concluded = info.ConcludedLicense
		if declared.IsZero() {
			declared = noAssertion
		}
		if concluded.IsZero() {
			concluded = noAssertion
		}
	}

	file, err := spdx.NewFile(spdxName, []filetype.Type{fileType}, sha1,
		concluded, []license.Expression{declared},
		licenseComment, info.Copyright, info.Notice, info.Comment, info.Contributors)
	if err != nil {
		logger.Errorf("SPDX error creating file record: %v", err)
		return nil, collectionErrorf(err, "error creating SPDX file record for %s", spdxName)
	}
	file.OptionalChecksums = optional
	return file, nil
}

// sha1For computes the mandatory SHA-1, honoring the rate limiter and the
// re-scan cache when configured.
func (c *Collector) sha1For(ctx context.Context, path string) (string, error) {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	if c.opts.Cache != nil {
		if info, err := os.Stat(path); err == nil {
			signature := scancache.Signature(info)
			if cached, ok := c.opts.Cache.Lookup(path, signature); ok {
				return cached, nil
			}
			sum, err := checksum.SHA1Hex(path)
			if err != nil {
				return "", err
			}
			c.opts.Cache.Store(path, signature, sum)
			return sum, nil
		}
	}
	return checksum.SHA1Hex(path)
}

func convertToSnippet(si spdx.SnippetInfo, file *spdx.File) (*spdx.Snippet, error) {
	concluded, err := license.Parse(si.ConcludedLicense)
	if err != nil {
		logger.Errorf("Invalid license string creating snippet: %v", err)
		return nil, collectionErrorf(err, "error processing SPDX snippet information, invalid license string specified in snippet %s", si.Name)
	}
	var inSnippet []license.Expression
	for _, raw := range si.LicenseInfoInSnippet {
		expr, err := license.Parse(raw)
		if err != nil {
			logger.Errorf("Invalid license string creating snippet: %v", err)
			return nil, collectionErrorf(err, "error processing SPDX snippet information, invalid license string specified in snippet %s", si.Name)
		}
		inSnippet = append(inSnippet, expr)
	}
	snippet, err := spdx.NewSnippet(si.Name, si.Comment, concluded, inSnippet,
		si.Copyright, si.LicenseComment,
		spdx.Range{Start: si.ByteStart, End: si.ByteEnd},
		spdx.Range{Start: si.LineStart, End: si.LineEnd},
		file)
	if err != nil {
		logger.Errorf("Error creating SPDX snippet: %v", err)
		return nil, collectionErrorf(err, "error creating SPDX snippet information for %s", si.Name)
	}
	return snippet, nil
}
