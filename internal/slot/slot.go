// Package slot implements the slot manager: choosing the A/B target
// slot, placing artifacts on disk, and recomputing the bootable slot
// after a failed launch.
package slot

import (
	"fmt"
	"os"
	"path/filepath"

	"patchcore/internal/perrors"
	"patchcore/internal/state"

	atomicfile "github.com/natefinch/atomic"
)

// artifactFileName is the file every populated slot directory holds.
const artifactFileName = "dlc.vmcode"

// dirPerm is the permission mode for slot directories.
const dirPerm = 0o750

// Manager places and activates patch artifacts under a single cache
// directory.
type Manager struct {
	CacheDir string
}

// NewManager returns a Manager rooted at cacheDir.
func NewManager(cacheDir string) *Manager {
	return &Manager{CacheDir: cacheDir}
}

// Dir returns the directory for slot index.
func (m *Manager) Dir(index int) string {
	return filepath.Join(m.CacheDir, fmt.Sprintf("slot_%d", index))
}

func (m *Manager) artifactPath(index int) string {
	return filepath.Join(m.Dir(index), artifactFileName)
}

// InstallPatch moves an already-downloaded (and, if needed, inflated)
// artifact at stagedPath into the target slot and updates st
// accordingly:
//
//  1. Refuse InvalidArgument if patch.Number is blacklisted.
//  2. Choose the target slot via st.AvailableSlot.
//  3. Clear the target slot record and persist -- load-bearing: this
//     must happen before the directory is touched so a crash mid-install
//     never leaves the state pointing at a half-populated directory.
//  4. Remove then recreate the target slot directory.
//  5. Move the staged artifact into place.
//  6. Record the new slot, set current_slot_index, raise the
//     latest-downloaded-patch floor.
//  7. Persist.
func (m *Manager) InstallPatch(st *state.State, patch state.PatchInfo, stagedPath string) error {
	if st.IsKnownBadPatch(patch) {
		return perrors.InvalidArgument("patch",
			fmt.Sprintf("refusing to install known bad patch: %d", patch.Number))
	}

	index := st.AvailableSlot()

	st.ClearSlot(index)

	if err := state.Save(m.CacheDir, st); err != nil {
		return err
	}

	dir := m.Dir(index)

	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing slot directory %q: %w", dir, err)
		}
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating slot directory %q: %w", dir, err)
	}

	artifactPath := m.artifactPath(index)

	staged, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("opening staged artifact %q: %w", stagedPath, err)
	}

	writeErr := atomicfile.WriteFile(artifactPath, staged)

	_ = staged.Close()

	if writeErr != nil {
		return fmt.Errorf("installing artifact into %q: %w", artifactPath, writeErr)
	}

	_ = os.Remove(stagedPath)

	st.SetSlot(index, artifactPath, patch.Number)
	st.SetCurrentSlot(&index)
	st.RaiseLatestDownloadedPatch(patch.Number)

	return state.Save(m.CacheDir, st)
}

// ActivateLatestBootablePatch is the rollback primitive invoked after
// a bad-boot report: it sets current_slot_index to the highest
// patch number among bootable slots (not blacklisted, artifact file
// still present), or to nil if none qualify, then persists.
func (m *Manager) ActivateLatestBootablePatch(st *state.State) error {
	idx := st.LatestBootableSlotIndex(fileExists)
	st.SetCurrentSlot(idx)

	return state.Save(m.CacheDir, st)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
