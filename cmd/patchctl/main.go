// Package main provides patchctl, a command-line harness for driving
// the patch lifecycle engine manually -- useful for exercising check,
// update, current, report-success/failure, and an interactive shell
// without embedding the engine in a host app.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"patchcore/internal/cli"
	"patchcore/internal/cliconfig"
	"patchcore/internal/config"
	"patchcore/internal/patchlog"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	if err := bootstrap(env); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	return cli.Run(ctx, os.Stdout, os.Stderr, os.Args[1:])
}

// bootstrap resolves the harness override file, sets up file logging
// under its cache_dir, and initializes the process-wide configuration
// before any subcommand runs.
func bootstrap(env map[string]string) error {
	harness, err := cliconfig.Load(cliconfig.LoadInput{Env: env})
	if err != nil {
		return fmt.Errorf("loading harness config: %w", err)
	}

	if harness.CacheDir == "" {
		return fmt.Errorf("patchcore.jsonc (or ~/.config/patchcore/config.jsonc) must set cache_dir")
	}

	logger := patchlog.NewFileLogger(patchlog.FileOptions{
		Path:       filepath.Join(harness.CacheDir, "patchctl.log"),
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})
	patchlog.SetLogger(logger)

	appCfg := config.AppConfig{
		CacheDir:           harness.CacheDir,
		ReleaseVersion:     harness.ReleaseVersion,
		OriginalLibappPath: harness.OriginalLibappPath,
		VMPath:             harness.VMPath,
		VerifyHash:         harness.VerifyHash,
	}

	yamlText := fmt.Sprintf("app_id: %q\nchannel: %q\nbase_url: %q\n",
		harness.AppID, harness.Channel, harness.BaseURL)

	return config.Init(appCfg, yamlText)
}
