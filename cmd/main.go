package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"sbomgen/collector"
	"sbomgen/config"
	"sbomgen/filetype"
	"sbomgen/logger"
	"sbomgen/scancache"
	"sbomgen/spdx"
	"sbomgen/utils"
)

type report struct {
	Package          *spdx.Package                `json:"package"`
	Files            []*spdx.File                 `json:"files"`
	Snippets         []*spdx.Snippet              `json:"snippets,omitempty"`
	Licenses         []string                     `json:"licensesFromFiles"`
	VerificationCode spdx.PackageVerificationCode `json:"packageVerificationCode"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defaultInfo, err := cfg.DefaultFileInformation()
	if err != nil {
		logger.Fatalf("Invalid default file information: %v", err)
	}
	overrides, err := config.LoadOverrides(cfg.PathOverridesFile, defaultInfo)
	if err != nil {
		logger.Fatalf("Failed to load path overrides: %v", err)
	}

	var cache *scancache.Cache
	if cfg.CacheFile != "" {
		cache, err = scancache.Load(cfg.CacheFile)
		if err != nil {
			logger.Warnf("Failed to load checksum cache, starting empty: %v", err)
			cache = scancache.New()
		}
	}

	var limiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	coll := collector.New(collector.Options{
		Classifier:         filetype.NewDefaultClassifier(cfg.FileTypeTables),
		SourceScanLimit:    cfg.SourceScanLimit,
		SniffContent:       cfg.SniffContent,
		OptionalAlgorithms: cfg.OptionalChecksums,
		Limiter:            limiter,
		Cache:              cache,
	})

	entries, err := expandFileSets(cfg)
	if err != nil {
		logger.Fatalf("Failed to expand file sets: %v", err)
	}
	logger.Infof("Collecting %d files", len(entries))

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Collecting files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(progressVisible()),
		progressbar.OptionFullWidth(),
	)

	pkg := &spdx.Package{SPDXID: cfg.PackageSPDXID, Name: cfg.PackageName}
	for _, entry := range entries {
		if err := coll.CollectFiles(ctx, []collector.FileEntry{entry}, defaultInfo, overrides, pkg, cfg.RelationshipType); err != nil {
			logger.Fatalf("Collection failed at %s: %v", entry.Path, err)
		}
		_ = bar.Add(1)
	}

	if cache != nil {
		if err := cache.Save(cfg.CacheFile); err != nil {
			logger.Warnf("Failed to save checksum cache: %v", err)
		}
	}

	var code spdx.PackageVerificationCode
	if cfg.ManifestPath != "" {
		code = coll.VerificationCodeExcludingManifest(cfg.ManifestPath)
	} else {
		code = coll.VerificationCode(nil)
	}

	if err := writeReport(cfg, coll, pkg, code); err != nil {
		logger.Fatalf("Failed to write report: %v", err)
	}
	logger.Infof("Package verification code: %s", code.Value)
}

// expandFileSets walks the start paths and produces the resolved file list
// the collector consumes: absolute path plus output-relative path.
func expandFileSets(cfg *config.Config) ([]collector.FileEntry, error) {
	matcher := utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)
	var entries []collector.FileEntry
	for _, startPath := range cfg.StartPaths {
		root, err := filepath.Abs(startPath)
		if err != nil {
			return nil, err
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warnf("Failed to access %s: %v", path, err)
				return nil
			}
			if d == nil || d.IsDir() {
				return nil
			}
			if !matcher.ShouldInclude(path) {
				return nil
			}
			if !utils.IsPathWithin(path, []string{root}) {
				logger.Warnf("Skipping file outside start paths: %s", path)
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			entries = append(entries, collector.FileEntry{
				Path:         path,
				RelativePath: filepath.ToSlash(rel),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func writeReport(cfg *config.Config, coll *collector.Collector, pkg *spdx.Package, code spdx.PackageVerificationCode) error {
	files := coll.Files()
	sort.Slice(files, func(i, j int) bool { return files[i].SpdxName < files[j].SpdxName })

	licenses := coll.LicenseInfoFromFiles()
	names := make([]string, 0, len(licenses))
	for _, expr := range licenses {
		names = append(names, expr.String())
	}
	sort.Strings(names)

	r := report{
		Package:          pkg,
		Files:            files,
		Snippets:         coll.Snippets(),
		Licenses:         names,
		VerificationCode: code,
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if cfg.ReportFile == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(cfg.ReportFile, data, 0600)
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("SBOMGEN_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
