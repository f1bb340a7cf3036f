// Package config holds the process-wide resolved configuration for the
// patch lifecycle engine. It is initialized once via Init and read many
// times via WithConfig, guarded by a mutex so a reinitializing Init call
// never produces a torn read.
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"patchcore/internal/perrors"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL = "https://patch.example.invalid"
	defaultChannel = "stable"

	// downloadsDirName is the subdirectory of CacheDir that holds
	// freshly downloaded (and inflated) artifacts before install.
	downloadsDirName = "downloads"
)

// AppConfig is the runtime, host-supplied half of the configuration —
// information about the running app and where the engine should keep
// its cache. It mirrors the FFI boundary's AppParameters struct.
type AppConfig struct {
	CacheDir            string
	ReleaseVersion      string
	OriginalLibappPath  string
	VMPath              string
	// VerifyHash opts into SHA-256 verification of the downloaded (or
	// inflated) artifact against Patch.Hash before install. Off by
	// default.
	VerifyHash bool
}

// YAMLConfig is the compiled-in configuration document.
// Recognized keys: app_id (required), channel (optional), base_url
// (optional). Unknown keys are ignored.
type YAMLConfig struct {
	AppID   string `yaml:"app_id"`
	Channel string `yaml:"channel"`
	BaseURL string `yaml:"base_url"`
}

// ParseYAML parses the compiled-in configuration text.
func ParseYAML(text string) (YAMLConfig, error) {
	var cfg YAMLConfig

	if err := yaml.Unmarshal([]byte(text), &cfg); err != nil {
		return YAMLConfig{}, fmt.Errorf("parse yaml: %w", err)
	}

	if cfg.AppID == "" {
		return YAMLConfig{}, fmt.Errorf("missing field `app_id`")
	}

	return cfg, nil
}

// Resolved is the merged, process-wide configuration. It is
// immutable after Init except for wholesale replacement by a later
// Init call.
type Resolved struct {
	isInitialized bool

	AppID               string
	Channel             string
	ReleaseVersion      string
	BaseURL             string
	CacheDir            string
	DownloadDir         string
	OriginalLibappPath  string
	VMPath              string
	VerifyHash          bool
}

var (
	mu       sync.Mutex
	resolved Resolved
)

// Init parses the compiled-in YAML text, merges it with app, applies
// defaults for missing optional keys, and installs the result as the
// single process-wide resolved configuration. Re-initialization
// overwrites. Returns InvalidArgument("yaml", ...) on a malformed or
// incomplete document.
func Init(app AppConfig, yamlText string) error {
	yamlCfg, err := ParseYAML(yamlText)
	if err != nil {
		return perrors.InvalidArgument("yaml", err.Error())
	}

	channel := yamlCfg.Channel
	if channel == "" {
		channel = defaultChannel
	}

	baseURL := yamlCfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	next := Resolved{
		isInitialized:      true,
		AppID:              yamlCfg.AppID,
		Channel:            channel,
		ReleaseVersion:     app.ReleaseVersion,
		BaseURL:            baseURL,
		CacheDir:           app.CacheDir,
		DownloadDir:        filepath.Join(app.CacheDir, downloadsDirName),
		OriginalLibappPath: app.OriginalLibappPath,
		VMPath:             app.VMPath,
		VerifyHash:         app.VerifyHash,
	}

	mu.Lock()
	resolved = next
	mu.Unlock()

	return nil
}

// WithConfig runs fn with a snapshot of the resolved configuration. It
// panics if called before a successful Init: calling any other core
// operation before a successful init is a fatal programming error.
func WithConfig[R any](fn func(cfg Resolved) R) R {
	mu.Lock()
	cfg := resolved
	mu.Unlock()

	if !cfg.isInitialized {
		panic(fmt.Errorf("%w: must call Init before using the updater", perrors.ErrNotInitialized))
	}

	return fn(cfg)
}
