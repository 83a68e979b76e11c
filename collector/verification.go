package collector

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"slices"
	"sort"

	"sbomgen/spdx"
)

// VerificationCode computes the package verification code over every
// collected record whose SPDX file name is not in excludedFileNames. The
// result depends only on the set of included checksums, never on scan
// order.
func (c *Collector) VerificationCode(excludedFileNames []string) spdx.PackageVerificationCode {
	return computeVerificationCode(c.Files(), excludedFileNames)
}

// VerificationCodeExcludingManifest excludes the record collected for the
// manifest file itself, so the code never digests its own container. The
// path is the manifest's absolute source path; when no record exists for
// it, nothing is excluded.
func (c *Collector) VerificationCodeExcludingManifest(manifestPath string) spdx.PackageVerificationCode {
	var excluded []string
	if manifestPath != "" {
		c.mu.Lock()
		if f, ok := c.files[manifestPath]; ok {
			excluded = append(excluded, f.SpdxName)
		}
		c.mu.Unlock()
	}
	return computeVerificationCode(c.Files(), excluded)
}

func computeVerificationCode(files []*spdx.File, excludedFileNames []string) spdx.PackageVerificationCode {
	checksums := make([]string, 0, len(files))
	for _, f := range files {
		if slices.Contains(excludedFileNames, f.SpdxName) {
			continue
		}
		checksums = append(checksums, f.Sha1)
	}
	// Byte-wise ascending order; the crux of reproducibility.
	sort.Strings(checksums)

	digest := sha1.New()
	for _, sum := range checksums {
		io.WriteString(digest, sum)
	}
	return spdx.PackageVerificationCode{
		Value:             hex.EncodeToString(digest.Sum(nil)),
		ExcludedFileNames: excludedFileNames,
	}
}
