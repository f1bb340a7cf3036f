package cliconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"patchcore/internal/cliconfig"
)

func writeProjectConfig(t *testing.T, dir, content string) {
	t.Helper()

	path := filepath.Join(dir, cliconfig.FileName)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing project config: %v", err)
	}
}

func TestLoad_NoConfigFilesReturnsEmptyConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := cliconfig.Load(cliconfig.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.CacheDir != "" {
		t.Fatalf("CacheDir = %q, want empty when no config file exists", cfg.CacheDir)
	}
}

func TestLoad_ReadsProjectConfigWithComments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeProjectConfig(t, dir, `{
		// local dev cache
		"cache_dir": "`+filepath.ToSlash(dir)+`/cache",
		"release_version": "1.2.3",
	}`)

	cfg, err := cliconfig.Load(cliconfig.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ReleaseVersion != "1.2.3" {
		t.Fatalf("ReleaseVersion = %q, want %q", cfg.ReleaseVersion, "1.2.3")
	}
}

func TestLoad_ExplicitConfigPathMustExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := cliconfig.Load(cliconfig.LoadInput{
		WorkDirOverride: dir,
		ConfigPath:      "does-not-exist.jsonc",
		Env:             map[string]string{},
	})

	if err == nil {
		t.Fatal("expected error for a missing explicit config path")
	}
}

func TestLoad_ProjectConfigOverridesGlobalConfig(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	project := t.TempDir()

	globalDir := filepath.Join(home, ".config", "patchcore")

	if err := os.MkdirAll(globalDir, 0o750); err != nil {
		t.Fatalf("mkdir global config dir: %v", err)
	}

	if err := os.WriteFile(filepath.Join(globalDir, "config.jsonc"), []byte(`{"channel": "stable", "app_id": "com.example.global"}`), 0o644); err != nil {
		t.Fatalf("writing global config: %v", err)
	}

	writeProjectConfig(t, project, `{"channel": "beta"}`)

	cfg, err := cliconfig.Load(cliconfig.LoadInput{
		WorkDirOverride: project,
		Env:             map[string]string{"HOME": home},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Channel != "beta" {
		t.Fatalf("Channel = %q, want project override %q", cfg.Channel, "beta")
	}

	if cfg.AppID != "com.example.global" {
		t.Fatalf("AppID = %q, want inherited global value %q", cfg.AppID, "com.example.global")
	}
}

func TestLoad_VerifyHashIsReadFromProjectConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeProjectConfig(t, dir, `{"verify_hash": true}`)

	cfg, err := cliconfig.Load(cliconfig.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.VerifyHash {
		t.Fatal("VerifyHash = false, want true")
	}
}

func TestLoad_MalformedJSONCFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeProjectConfig(t, dir, `{not valid json at all`)

	_, err := cliconfig.Load(cliconfig.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err == nil {
		t.Fatal("expected error for malformed JSONC")
	}
}
