package config

import (
	"encoding/json"
	"fmt"
	"os"

	"sbomgen/license"
	"sbomgen/spdx"
)

// FileInfoJSON is the on-disk form of a per-path override entry. License
// fields are literal expression strings, parsed on load.
type FileInfoJSON struct {
	DeclaredLicense  string             `json:"declared_license,omitempty"`
	ConcludedLicense string             `json:"concluded_license,omitempty"`
	Copyright        string             `json:"copyright,omitempty"`
	Notice           string             `json:"notice,omitempty"`
	Comment          string             `json:"comment,omitempty"`
	LicenseComment   string             `json:"license_comment,omitempty"`
	Contributors     []string           `json:"contributors,omitempty"`
	Snippets         []spdx.SnippetInfo `json:"snippets,omitempty"`
}

func (fi FileInfoJSON) toDefaultFileInformation(fallback *spdx.DefaultFileInformation) (*spdx.DefaultFileInformation, error) {
	info := &spdx.DefaultFileInformation{
		Copyright:      fi.Copyright,
		Notice:         fi.Notice,
		Comment:        fi.Comment,
		LicenseComment: fi.LicenseComment,
		Contributors:   fi.Contributors,
		Snippets:       fi.Snippets,
	}
	if fi.DeclaredLicense != "" {
		declared, err := license.Parse(fi.DeclaredLicense)
		if err != nil {
			return nil, err
		}
		info.DeclaredLicense = declared
	} else if fallback != nil {
		info.DeclaredLicense = fallback.DeclaredLicense
	}
	if fi.ConcludedLicense != "" {
		concluded, err := license.Parse(fi.ConcludedLicense)
		if err != nil {
			return nil, err
		}
		info.ConcludedLicense = concluded
	} else if fallback != nil {
		info.ConcludedLicense = fallback.ConcludedLicense
	}
	return info, nil
}

// LoadOverrides reads the path-to-override mapping from a JSON file. Keys
// are relative paths (file or directory), forward-slash separated.
func LoadOverrides(path string, fallback *spdx.DefaultFileInformation) (map[string]*spdx.DefaultFileInformation, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}
	raw := make(map[string]FileInfoJSON)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}
	overrides := make(map[string]*spdx.DefaultFileInformation, len(raw))
	for key, fi := range raw {
		info, err := fi.toDefaultFileInformation(fallback)
		if err != nil {
			return nil, fmt.Errorf("override for %s: %w", key, err)
		}
		overrides[key] = info
	}
	return overrides, nil
}
