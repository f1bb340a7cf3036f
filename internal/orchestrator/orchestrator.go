// Package orchestrator implements the update orchestrator: the public,
// synchronous operations a host process drives the patch lifecycle
// engine through.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"patchcore/internal/config"
	"patchcore/internal/inflate"
	"patchcore/internal/network"
	"patchcore/internal/patchlog"
	"patchcore/internal/perrors"
	"patchcore/internal/slot"
	"patchcore/internal/state"
)

// UpdateStatus is the result of Update.
type UpdateStatus int

const (
	NoUpdate UpdateStatus = iota
	UpdateAvailable
	UpdateDownloaded
	UpdateInstalled
	UpdateHadError
)

// String renders the status the way a host log line would show it.
func (s UpdateStatus) String() string {
	switch s {
	case NoUpdate:
		return "No update"
	case UpdateAvailable:
		return "Update available"
	case UpdateDownloaded:
		return "Update downloaded"
	case UpdateInstalled:
		return "Update installed"
	case UpdateHadError:
		return "Update had error"
	default:
		return "Unknown status"
	}
}

// Init parses the compiled-in YAML text, resolves it against app, and
// installs the process-wide configuration.
func Init(app config.AppConfig, yamlText string) error {
	return config.Init(app, yamlText)
}

// CheckForUpdate loads state, sends a patch-check request, and returns
// patch_available on success. Any error is logged and downgraded to
// false -- availability checks must never throw at the host.
func CheckForUpdate(ctx context.Context) bool {
	return config.WithConfig(func(cfg config.Resolved) bool {
		st := state.Load(cfg.CacheDir, cfg.ReleaseVersion)

		resp, err := sendCheck(ctx, cfg, st)
		if err != nil {
			patchlog.Logger().Error("failed update check", "error", err)
			return false
		}

		return resp.PatchAvailable
	})
}

// ActivePatch returns the patch that will boot next, or false when
// none is active.
func ActivePatch() (state.PatchInfo, bool) {
	result := config.WithConfig(func(cfg config.Resolved) patchResult {
		st := state.Load(cfg.CacheDir, cfg.ReleaseVersion)
		patch, ok := st.CurrentPatch()

		return patchResult{patch: patch, ok: ok}
	})

	return result.patch, result.ok
}

type patchResult struct {
	patch state.PatchInfo
	ok    bool
}

// ReportSuccessfulLaunch allowlists the current patch.
func ReportSuccessfulLaunch() error {
	return config.WithConfig(func(cfg config.Resolved) error {
		st := state.Load(cfg.CacheDir, cfg.ReleaseVersion)

		patch, ok := st.CurrentPatch()
		if !ok {
			return perrors.InvalidState("no current patch")
		}

		st.MarkPatchAsGood(patch)

		return state.Save(cfg.CacheDir, st)
	})
}

// ReportFailedLaunch blacklists the current patch, then activates the
// highest still-bootable patch (the rollback primitive).
func ReportFailedLaunch() error {
	return config.WithConfig(func(cfg config.Resolved) error {
		st := state.Load(cfg.CacheDir, cfg.ReleaseVersion)

		patch, ok := st.CurrentPatch()
		if !ok {
			return perrors.InvalidState("no current patch")
		}

		st.MarkPatchAsBad(patch)

		if err := state.Save(cfg.CacheDir, st); err != nil {
			return err
		}

		mgr := slot.NewManager(cfg.CacheDir)

		return mgr.ActivateLatestBootablePatch(st)
	})
}

// Update checks for a patch and, if one is available, downloads (and,
// if needed, inflates) and installs it. Any failure is logged
// with the chain of wrapped errors and downgraded to UpdateHadError;
// the server reporting no patch yields NoUpdate.
func Update(ctx context.Context) UpdateStatus {
	return config.WithConfig(func(cfg config.Resolved) UpdateStatus {
		status, err := updateInternal(ctx, cfg)
		if err != nil {
			patchlog.Logger().Error("problem updating", "error", err)
			return UpdateHadError
		}

		return status
	})
}

func updateInternal(ctx context.Context, cfg config.Resolved) (UpdateStatus, error) {
	st := state.Load(cfg.CacheDir, cfg.ReleaseVersion)

	resp, err := sendCheck(ctx, cfg, st)
	if err != nil {
		return UpdateHadError, err
	}

	if !resp.PatchAvailable {
		return NoUpdate, nil
	}

	if resp.Patch == nil {
		return UpdateHadError, fmt.Errorf("%w: patch_available=true with no patch object", perrors.ErrBadServerResponse)
	}

	patch := *resp.Patch

	client := network.NewClient(cfg.BaseURL)

	downloadPath := filepath.Join(cfg.DownloadDir, strconv.FormatUint(patch.Number, 10))

	if err := client.Download(ctx, patch.DownloadURL, downloadPath); err != nil {
		return UpdateHadError, err
	}

	artifactPath := downloadPath

	if patch.IsDiff {
		fullPath := downloadPath + ".full"

		if err := inflate.Inflate(downloadPath, cfg.OriginalLibappPath, fullPath); err != nil {
			return UpdateHadError, err
		}

		artifactPath = fullPath
	}

	if cfg.VerifyHash {
		if err := verifyHash(artifactPath, patch.Hash); err != nil {
			return UpdateHadError, err
		}
	}

	mgr := slot.NewManager(cfg.CacheDir)

	patchInfo := state.PatchInfo{Path: artifactPath, Number: patch.Number}

	if err := mgr.InstallPatch(st, patchInfo, artifactPath); err != nil {
		return UpdateHadError, err
	}

	return UpdateInstalled, nil
}

func sendCheck(ctx context.Context, cfg config.Resolved, st *state.State) (network.CheckResponse, error) {
	req := network.CheckRequest{
		AppID:          cfg.AppID,
		Channel:        cfg.Channel,
		ReleaseVersion: cfg.ReleaseVersion,
		Platform:       network.CurrentPlatform(),
		Arch:           network.CurrentArch(),
	}

	if patch, ok := st.CurrentPatch(); ok {
		req.PatchNumber = &patch.Number
	}

	client := network.NewClient(cfg.BaseURL)

	return client.Check(ctx, req)
}

// verifyHash is the opt-in checksum verification extension point: it
// compares artifactPath's SHA-256 digest against the server-supplied
// hash, tolerant of a "sha256:" prefix.
func verifyHash(artifactPath, wantHash string) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("opening artifact for hash verification: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()

	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("hashing artifact: %w", err)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	want := trimHashPrefix(wantHash)

	if got != want {
		return perrors.InvalidArgument("patch.hash", fmt.Sprintf("expected %s, got %s", want, got))
	}

	return nil
}

func trimHashPrefix(h string) string {
	const prefix = "sha256:"

	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}

	return h
}
