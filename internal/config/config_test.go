package config_test

import (
	"strings"
	"testing"

	"patchcore/internal/config"
)

// These tests share process-wide state (the config singleton), so they
// must not run in parallel with each other.

func TestInit_MissingAppIDFails(t *testing.T) {
	app := config.AppConfig{CacheDir: t.TempDir(), ReleaseVersion: "1.0.0"}

	err := config.Init(app, "channel: stable\n")
	if err == nil {
		t.Fatal("expected error for yaml missing app_id")
	}

	if !strings.Contains(err.Error(), "app_id") {
		t.Fatalf("error %q does not mention app_id", err.Error())
	}
}

func TestInit_AppliesDefaultsForOptionalFields(t *testing.T) {
	app := config.AppConfig{
		CacheDir:       t.TempDir(),
		ReleaseVersion: "1.0.0",
	}

	if err := config.Init(app, "app_id: com.example.app\n"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got := config.WithConfig(func(cfg config.Resolved) config.Resolved { return cfg })

	if got.Channel != "stable" {
		t.Fatalf("Channel=%q, want default %q", got.Channel, "stable")
	}

	if got.BaseURL == "" {
		t.Fatal("BaseURL should have a default, got empty")
	}
}

func TestInit_HonorsExplicitChannelAndBaseURL(t *testing.T) {
	app := config.AppConfig{CacheDir: t.TempDir(), ReleaseVersion: "2.0.0"}

	yamlText := "app_id: com.example.app\nchannel: beta\nbase_url: https://updates.example.com\n"

	if err := config.Init(app, yamlText); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got := config.WithConfig(func(cfg config.Resolved) config.Resolved { return cfg })

	if got.Channel != "beta" {
		t.Fatalf("Channel=%q, want %q", got.Channel, "beta")
	}

	if got.BaseURL != "https://updates.example.com" {
		t.Fatalf("BaseURL=%q, want explicit value", got.BaseURL)
	}
}

func TestInit_ComputesDownloadDirUnderCacheDir(t *testing.T) {
	cacheDir := t.TempDir()
	app := config.AppConfig{CacheDir: cacheDir, ReleaseVersion: "1.0.0"}

	if err := config.Init(app, "app_id: com.example.app\n"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got := config.WithConfig(func(cfg config.Resolved) config.Resolved { return cfg })

	if !strings.HasPrefix(got.DownloadDir, cacheDir) {
		t.Fatalf("DownloadDir=%q not under CacheDir=%q", got.DownloadDir, cacheDir)
	}
}

func TestWithConfig_PanicsBeforeInit(t *testing.T) {
	config.ResetForTesting()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling WithConfig before Init")
		}
	}()

	config.WithConfig(func(cfg config.Resolved) int { return 0 })
}
