package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/euforicio/blogmd/internal/config"
)

func siteRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, config.PostsDirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return root
}

func TestLocateRootWalksUp(t *testing.T) {
	t.Parallel()

	root := siteRoot(t)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := config.LocateRoot(nested)
	if err != nil {
		t.Fatalf("LocateRoot: %v", err)
	}
	if got != root {
		t.Fatalf("LocateRoot = %s, want %s", got, root)
	}
}

func TestLocateRootNotFound(t *testing.T) {
	t.Parallel()

	if _, err := config.LocateRoot(t.TempDir()); !errors.Is(err, config.ErrRootNotFound) {
		t.Fatalf("err = %v, want ErrRootNotFound", err)
	}
}

func TestFinalizeResolvesOutputDir(t *testing.T) {
	t.Parallel()

	root := siteRoot(t)
	cfg := config.Default()
	cfg.SiteDir = root

	if err := config.Finalize(&cfg); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.SiteDir != root {
		t.Errorf("SiteDir = %s, want %s", cfg.SiteDir, root)
	}
	if want := filepath.Join(root, "_site"); cfg.OutputDir != want {
		t.Errorf("OutputDir = %s, want %s", cfg.OutputDir, want)
	}
}

func TestFinalizeRejectsBadPort(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.SiteDir = siteRoot(t)
	cfg.Port = 70000

	if err := config.Finalize(&cfg); err == nil {
		t.Fatal("expected invalid port error")
	}
}

func TestFinalizeTrimsBaseURL(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.SiteDir = siteRoot(t)
	cfg.BaseURL = "https://blog.example.com/ "

	if err := config.Finalize(&cfg); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.BaseURL != "https://blog.example.com" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("BLOGMD_TITLE", "Override")
	t.Setenv("BLOGMD_PORT", "8080")
	t.Setenv("BLOGMD_DRAFTS", "true")
	t.Setenv("BLOGMD_OUT", "")

	cfg := config.Default()
	config.ApplyEnvOverrides(&cfg)

	if cfg.SiteTitle != "Override" {
		t.Errorf("SiteTitle = %q", cfg.SiteTitle)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if !cfg.IncludeDrafts {
		t.Error("IncludeDrafts not applied")
	}
	if cfg.OutputDir != "_site" {
		t.Errorf("empty env var must not override, OutputDir = %q", cfg.OutputDir)
	}
}
