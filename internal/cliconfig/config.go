// Package cliconfig loads the optional local override file used by the
// patchctl test harness. It is not part of the FFI contract -- just a
// manual-testing convenience so a developer can run "patchctl check"
// repeatedly against a fixed cache dir without re-typing flags every
// time.
package cliconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// FileName is the default harness config file name.
const FileName = "patchcore.jsonc"

// Errors returned while loading the harness config.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
)

// Config mirrors the fields an operator would otherwise have to pass
// as flags on every invocation.
type Config struct {
	CacheDir           string `json:"cache_dir,omitempty"`
	ReleaseVersion     string `json:"release_version,omitempty"`
	Channel            string `json:"channel,omitempty"`
	BaseURL            string `json:"base_url,omitempty"`
	OriginalLibappPath string `json:"original_libapp_path,omitempty"`
	VMPath             string `json:"vm_path,omitempty"`
	AppID              string `json:"app_id,omitempty"`
	VerifyHash         bool   `json:"verify_hash,omitempty"`
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // directory searched for patchcore.jsonc; if empty, os.Getwd() is used
	ConfigPath      string            // explicit config file; if non-empty it must exist and is read instead of patchcore.jsonc
	Env             map[string]string // environment variables
}

// Load resolves the harness config with the following precedence
// (highest wins): defaults (empty) -> global user config
// (~/.config/patchcore/config.jsonc) -> project config file. The
// project config file is the explicit ConfigPath when it is non-empty;
// otherwise it is ./patchcore.jsonc, if present. ./patchcore.jsonc is
// not read when ConfigPath is set.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Config{}

	globalCfg, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg = merge(cfg, globalCfg)

	projectCfg, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg = merge(cfg, projectCfg)

	return cfg, nil
}

func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "patchcore", "config.jsonc")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "patchcore", "config.jsonc")
	}

	return ""
}

func loadGlobalConfig(env map[string]string) (Config, error) {
	path := globalConfigPath(env)
	if path == "" {
		return Config{}, nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil {
		return Config{}, err
	}

	if !loaded {
		return Config{}, nil
	}

	return cfg, nil
}

func loadProjectConfig(workDir, configPath string) (Config, error) {
	var file string

	mustExist := configPath != ""

	if mustExist {
		file = configPath
		if !filepath.IsAbs(file) {
			file = filepath.Join(workDir, file)
		}

		if _, err := os.Stat(file); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		file = filepath.Join(workDir, FileName)
	}

	cfg, loaded, err := loadConfigFile(file, mustExist)
	if err != nil {
		return Config{}, err
	}

	if !loaded {
		return Config{}, nil
	}

	return cfg, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.CacheDir != "" {
		base.CacheDir = overlay.CacheDir
	}

	if overlay.ReleaseVersion != "" {
		base.ReleaseVersion = overlay.ReleaseVersion
	}

	if overlay.Channel != "" {
		base.Channel = overlay.Channel
	}

	if overlay.BaseURL != "" {
		base.BaseURL = overlay.BaseURL
	}

	if overlay.OriginalLibappPath != "" {
		base.OriginalLibappPath = overlay.OriginalLibappPath
	}

	if overlay.VMPath != "" {
		base.VMPath = overlay.VMPath
	}

	if overlay.AppID != "" {
		base.AppID = overlay.AppID
	}

	if overlay.VerifyHash {
		base.VerifyHash = true
	}

	return base
}
