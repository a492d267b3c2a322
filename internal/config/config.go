// Package config manages pipeline configuration from environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const envPrefix = "BLOGMD_"

// PostsDirName is the directory holding published articles, relative to the site root.
const PostsDirName = "_posts"

// DraftsDirName is the directory holding unpublished drafts, relative to the site root.
const DraftsDirName = "_drafts"

// ErrRootNotFound is returned when no ancestor directory contains a posts directory.
var ErrRootNotFound = errors.New("no " + PostsDirName + " directory found in any ancestor directory")

// Config holds runtime configuration for the publishing pipeline.
type Config struct {
	SiteDir       string
	OutputDir     string
	SiteTitle     string
	BaseURL       string
	Port          int
	IncludeDrafts bool
	AutoOpen      bool
	Watch         bool
	SearchIndex   bool
	Verbose       bool
}

// Default returns ready-to-use defaults prior to env/flag overrides.
func Default() Config {
	return Config{
		SiteDir:     ".",
		OutputDir:   "_site",
		SiteTitle:   "blogmd",
		Port:        4000,
		AutoOpen:    false,
		Watch:       false,
		SearchIndex: false,
	}
}

// RegisterFlags attaches configuration flags to the provided FlagSet.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.SiteDir, "site", "s", cfg.SiteDir, "site root directory (located automatically when it contains no "+PostsDirName+")")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "output directory for the rendered site, relative to the site root")
	fs.StringVar(&cfg.SiteTitle, "title", cfg.SiteTitle, "site title used in rendered pages and the feed")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "optional absolute base URL for canonical links and the feed")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to bind the preview server (0 = auto-assign)")
	fs.BoolVar(&cfg.IncludeDrafts, "drafts", cfg.IncludeDrafts, "include "+DraftsDirName+" documents in the build")
	fs.BoolVar(&cfg.AutoOpen, "open", cfg.AutoOpen, "open the browser automatically after the preview server starts")
	fs.BoolVarP(&cfg.Watch, "watch", "w", cfg.Watch, "rebuild when the content store changes while serving")
	fs.BoolVar(&cfg.SearchIndex, "search-index", cfg.SearchIndex, "generate a JSON search index alongside the site")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable verbose logging")
}

// ApplyEnvOverrides reads supported environment variables and overrides cfg in place.
func ApplyEnvOverrides(cfg *Config) {
	applyStringEnv("SITE", func(v string) { cfg.SiteDir = v })
	applyStringEnv("OUT", func(v string) { cfg.OutputDir = v })
	applyStringEnv("TITLE", func(v string) { cfg.SiteTitle = v })
	applyStringEnv("BASE_URL", func(v string) { cfg.BaseURL = v })
	applyIntEnv("PORT", func(v int) { cfg.Port = v })
	applyBoolEnv("DRAFTS", func(v bool) { cfg.IncludeDrafts = v })
	applyBoolEnv("OPEN", func(v bool) { cfg.AutoOpen = v })
	applyBoolEnv("WATCH", func(v bool) { cfg.Watch = v })
	applyBoolEnv("SEARCH_INDEX", func(v bool) { cfg.SearchIndex = v })
	applyBoolEnv("VERBOSE", func(v bool) { cfg.Verbose = v })
}

func applyStringEnv(key string, apply func(string)) {
	if raw, ok := lookupNonEmpty(key); ok {
		apply(raw)
	}
}

func applyIntEnv(key string, apply func(int)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.Atoi(raw); err == nil {
			apply(value)
		}
	}
}

func applyBoolEnv(key string, apply func(bool)) {
	if raw, ok := lookupNonEmpty(key); ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			apply(value)
		}
	}
}

func lookupNonEmpty(key string) (string, bool) {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

// Finalize resolves the site root, normalizes paths, and validates ranges.
// The pipeline always works from the site root so that the content store and
// output tree resolve consistently regardless of the caller's directory.
func Finalize(cfg *Config) error {
	site, err := filepath.Abs(cfg.SiteDir)
	if err != nil {
		return fmt.Errorf("resolve site directory: %w", err)
	}

	root, err := LocateRoot(site)
	if err != nil {
		return err
	}
	cfg.SiteDir = root

	if cfg.OutputDir == "" {
		cfg.OutputDir = "_site"
	}
	if !filepath.IsAbs(cfg.OutputDir) {
		cfg.OutputDir = filepath.Join(root, cfg.OutputDir)
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return nil
}

// LocateRoot walks upward from start until it finds a directory containing a
// posts directory. It returns start itself when start already qualifies.
func LocateRoot(start string) (string, error) {
	dir := start
	for {
		info, err := os.Stat(filepath.Join(dir, PostsDirName))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", filepath.Join(dir, PostsDirName), err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s)", ErrRootNotFound, start)
		}
		dir = parent
	}
}
