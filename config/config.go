// Package config loads sbomgen settings from defaults, an optional JSON
// configuration file, and command line flags, in that order of precedence.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"sbomgen/checksum"
	"sbomgen/collector"
	"sbomgen/license"
	"sbomgen/spdx"
	"sbomgen/version"
)

type Config struct {
	StartPaths        []string `json:"start_paths"`
	IncludePatterns   []string `json:"include_patterns"`
	ExcludePatterns   []string `json:"exclude_patterns"`
	PackageName       string   `json:"package_name"`
	PackageSPDXID     string   `json:"package_spdx_id"`
	RelationshipType  string   `json:"relationship_type"`
	DeclaredLicense   string   `json:"declared_license"`
	ConcludedLicense  string   `json:"concluded_license"`
	Copyright         string   `json:"copyright"`
	Notice            string   `json:"notice"`
	Comment           string   `json:"comment"`
	LicenseComment    string   `json:"license_comment"`
	Contributors      []string `json:"contributors"`
	PathOverridesFile string   `json:"path_overrides_file"`
	OptionalChecksums []string `json:"optional_checksums"`
	SourceScanLimit   int64    `json:"source_scan_limit"`
	SniffContent      bool     `json:"sniff_content"`
	FileTypeTables    string   `json:"file_type_tables"`
	CacheFile         string   `json:"cache_file"`
	MaxIOPerSecond    int      `json:"max_io_per_second"`
	ManifestPath      string   `json:"manifest_path"`
	ReportFile        string   `json:"report_file"`
	LogLevel          string   `json:"log_level"`
	ConfigFile        string   `json:"-"`
}

// RelationshipTypes are the relationship tags a file record may carry
// toward the owning package.
var RelationshipTypes = []string{"GENERATED_FROM", "CONTAINS"}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		StartPaths:       []string{"."},
		PackageName:      "package",
		PackageSPDXID:    "SPDXRef-Package",
		RelationshipType: "GENERATED_FROM",
		DeclaredLicense:  "NOASSERTION",
		ConcludedLicense: "NOASSERTION",
		SourceScanLimit:  collector.DefaultSourceScanLimit,
		LogLevel:         "info",
	}

	startPath := flag.String("path", strings.Join(cfg.StartPaths, ","), "Comma-separated list of start paths to scan (default: .).")
	includes := flag.String("include", "", "Comma-separated list of include patterns (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated list of exclude patterns (default: none).")
	packageName := flag.String("package-name", cfg.PackageName, "Name of the package the files belong to.")
	packageID := flag.String("package-spdx-id", cfg.PackageSPDXID, "SPDX identifier of the owning package.")
	relationship := flag.String("relationship", cfg.RelationshipType, "Relationship of files to the package: GENERATED_FROM or CONTAINS.")
	declared := flag.String("declared-license", cfg.DeclaredLicense, "Default declared license expression.")
	concluded := flag.String("concluded-license", cfg.ConcludedLicense, "Default concluded license expression.")
	copyright := flag.String("copyright", "", "Default copyright text (default: none).")
	notice := flag.String("notice", "", "Default notice text (default: none).")
	comment := flag.String("comment", "", "Default file comment (default: none).")
	licenseComment := flag.String("license-comment", "", "Default license comment (default: none).")
	contributors := flag.String("contributors", "", "Comma-separated list of default file contributors (default: none).")
	overridesFile := flag.String("overrides", "", "Path to a JSON file mapping relative paths to override metadata (default: none).")
	checksums := flag.String("checksums", "", fmt.Sprintf("Comma-separated list of optional checksum algorithms: %s (default: none).", strings.Join(checksum.Algorithms, ", ")))
	scanLimit := flag.Int64("source-scan-limit", cfg.SourceScanLimit, "Maximum source file size in bytes for embedded license scanning.")
	sniff := flag.Bool("sniff-content", cfg.SniffContent, "Refine unclassified files with magic-byte detection (default: false).")
	tables := flag.String("file-type-tables", "", "Path to a YAML file overriding the extension tables (default: embedded tables).")
	cacheFile := flag.String("cache-file", "", "Path to the re-scan checksum cache (default: none).")
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, "Maximum files hashed per second, 0 for unlimited.")
	manifest := flag.String("manifest", "", "Absolute path of the manifest file to exclude from the verification code (default: none).")
	report := flag.String("report", "", "Scan report file (default: stdout).")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error, fatal, or panic (default: info).")
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("sbomgen version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.StartPaths = parseCommaSeparated(*startPath)
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "package-name":
			cfg.PackageName = *packageName
		case "package-spdx-id":
			cfg.PackageSPDXID = *packageID
		case "relationship":
			cfg.RelationshipType = *relationship
		case "declared-license":
			cfg.DeclaredLicense = *declared
		case "concluded-license":
			cfg.ConcludedLicense = *concluded
		case "copyright":
			cfg.Copyright = *copyright
		case "notice":
			cfg.Notice = *notice
		case "comment":
			cfg.Comment = *comment
		case "license-comment":
			cfg.LicenseComment = *licenseComment
		case "contributors":
			cfg.Contributors = parseCommaSeparated(*contributors)
		case "overrides":
			cfg.PathOverridesFile = *overridesFile
		case "checksums":
			cfg.OptionalChecksums = parseCommaSeparated(*checksums)
		case "source-scan-limit":
			cfg.SourceScanLimit = *scanLimit
		case "sniff-content":
			cfg.SniffContent = *sniff
		case "file-type-tables":
			cfg.FileTypeTables = *tables
		case "cache-file":
			cfg.CacheFile = *cacheFile
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
		case "manifest":
			cfg.ManifestPath = *manifest
		case "report":
			cfg.ReportFile = *report
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.StartPaths) == 0 {
		return fmt.Errorf("no start paths specified")
	}
	if !slices.Contains(RelationshipTypes, c.RelationshipType) {
		return fmt.Errorf("invalid relationship type %q, expected one of %s", c.RelationshipType, strings.Join(RelationshipTypes, ", "))
	}
	for _, algorithm := range c.OptionalChecksums {
		if !slices.Contains(checksum.Algorithms, algorithm) {
			return fmt.Errorf("unsupported checksum algorithm %q", algorithm)
		}
	}
	if _, err := license.Parse(c.DeclaredLicense); err != nil {
		return fmt.Errorf("declared license: %w", err)
	}
	if _, err := license.Parse(c.ConcludedLicense); err != nil {
		return fmt.Errorf("concluded license: %w", err)
	}
	if c.SourceScanLimit <= 0 {
		return fmt.Errorf("source scan limit must be positive")
	}
	return nil
}

// DefaultFileInformation converts the package-wide defaults into the bundle
// the collector consumes.
func (c *Config) DefaultFileInformation() (*spdx.DefaultFileInformation, error) {
	declared, err := license.Parse(c.DeclaredLicense)
	if err != nil {
		return nil, fmt.Errorf("declared license: %w", err)
	}
	concluded, err := license.Parse(c.ConcludedLicense)
	if err != nil {
		return nil, fmt.Errorf("concluded license: %w", err)
	}
	return &spdx.DefaultFileInformation{
		DeclaredLicense:  declared,
		ConcludedLicense: concluded,
		Copyright:        c.Copyright,
		Notice:           c.Notice,
		Comment:          c.Comment,
		LicenseComment:   c.LicenseComment,
		Contributors:     c.Contributors,
	}, nil
}

func parseCommaSeparated(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
