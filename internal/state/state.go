// Package state implements the persistent state document: the on-disk
// JSON record of release version, slot table, and patch
// blacklist/allowlist that the rest of the engine mutates through
// load -> mutate -> save cycles.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"patchcore/internal/patchlog"
	"patchcore/internal/perrors"
	"patchcore/pkg/fs"
)

// fileName is the state document's name within cache_dir.
const fileName = "state.json"

// filePerm is the permission mode for state.json.
const filePerm = 0o644

// Slot is one on-disk slot record. A default/empty slot has empty
// Path and PatchNumber 0, and is never returned as current.
type Slot struct {
	Path        string `json:"path"`
	PatchNumber uint64 `json:"patch_number"`
}

func (s Slot) isEmpty() bool {
	return s.Path == "" && s.PatchNumber == 0
}

func (s Slot) toPatchInfo() PatchInfo {
	return PatchInfo{Path: s.Path, Number: s.PatchNumber}
}

// PatchInfo is a patch's logical identity plus the path it lives at
// once installed. Two patches are equal iff their numbers are equal.
type PatchInfo struct {
	Path   string
	Number uint64
}

// State is the persistent state document. Callers may hold a
// reference to it, but should mutate it only through the methods
// below so invariants keep holding.
type State struct {
	ReleaseVersion        string   `json:"release_version"`
	Slots                 []Slot   `json:"slots"`
	CurrentSlotIndex      *int     `json:"current_slot_index,omitempty"`
	LatestDownloadedPatch *uint64  `json:"latest_downloaded_patch,omitempty"`
	FailedPatches         []uint64 `json:"failed_patches"`
	SuccessfulPatches     []uint64 `json:"successful_patches"`
}

// New returns a fresh empty state scoped to releaseVersion.
func New(releaseVersion string) *State {
	return &State{
		ReleaseVersion:    releaseVersion,
		Slots:             []Slot{},
		FailedPatches:     []uint64{},
		SuccessfulPatches: []uint64{},
	}
}

// Load attempts to read and parse state.json under cacheDir. If the
// file is missing, malformed, or its release_version does not exactly
// equal releaseVersion, it returns a fresh empty state scoped to
// releaseVersion and logs a warning. Load never fails.
func Load(cacheDir, releaseVersion string) *State {
	path := filepath.Join(cacheDir, fileName)

	raw, err := os.ReadFile(path)
	if err != nil {
		patchlog.Logger().Warn("failed to read updater state, resetting", "error", err)

		return New(releaseVersion)
	}

	var loaded State

	if err := json.Unmarshal(raw, &loaded); err != nil {
		patchlog.Logger().Warn("failed to parse updater state, resetting", "error", err)
		return New(releaseVersion)
	}

	if loaded.Slots == nil {
		loaded.Slots = []Slot{}
	}

	if loaded.FailedPatches == nil {
		loaded.FailedPatches = []uint64{}
	}

	if loaded.SuccessfulPatches == nil {
		loaded.SuccessfulPatches = []uint64{}
	}

	if loaded.ReleaseVersion != releaseVersion {
		patchlog.Logger().Warn("release version changed, clearing updater state",
			"old", loaded.ReleaseVersion, "new", releaseVersion)

		return New(releaseVersion)
	}

	return &loaded
}

// Save writes the state document atomically to cacheDir/state.json,
// creating cacheDir if it doesn't exist. Fails only on I/O error,
// surfaced as perrors.ErrFailedToSaveState.
func Save(cacheDir string, st *State) error {
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return fmt.Errorf("%w: creating cache dir: %w", perrors.ErrFailedToSaveState, err)
	}

	encoded, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding state: %w", perrors.ErrFailedToSaveState, err)
	}

	writer := fs.NewAtomicWriter(fs.NewReal())

	path := filepath.Join(cacheDir, fileName)

	opts := writer.DefaultOptions()
	opts.Perm = filePerm

	if err := writer.Write(path, bytes.NewReader(encoded), opts); err != nil {
		// A failed parent-directory fsync still leaves the new
		// content in place; only surface as failure to save if the
		// write/rename itself didn't go through.
		if errors.Is(err, fs.ErrAtomicWriteDirSync) {
			patchlog.Logger().Warn("state saved but parent directory sync failed", "error", err)
			return nil
		}

		return fmt.Errorf("%w: %w", perrors.ErrFailedToSaveState, err)
	}

	return nil
}

// CurrentPatch returns the patch that will boot next, or false when
// current_slot_index is absent or out of range of slots -- an explicit
// range check, guarding against a truncated slot list.
func (s *State) CurrentPatch() (PatchInfo, bool) {
	if s.CurrentSlotIndex == nil {
		return PatchInfo{}, false
	}

	idx := *s.CurrentSlotIndex
	if idx < 0 || idx >= len(s.Slots) {
		return PatchInfo{}, false
	}

	return s.Slots[idx].toPatchInfo(), true
}

// IsKnownGoodPatch reports whether patch.Number is in successful_patches.
func (s *State) IsKnownGoodPatch(patch PatchInfo) bool {
	return containsUint64(s.SuccessfulPatches, patch.Number)
}

// IsKnownBadPatch reports whether patch.Number is in failed_patches.
func (s *State) IsKnownBadPatch(patch PatchInfo) bool {
	return containsUint64(s.FailedPatches, patch.Number)
}

// MarkPatchAsBad appends patch.Number to failed_patches unless it's
// already in successful_patches (ignored with a warning, a patch
// number once in one list cannot move to the other) or already in
// failed_patches (no-op).
func (s *State) MarkPatchAsBad(patch PatchInfo) {
	if s.IsKnownGoodPatch(patch) {
		patchlog.Logger().Warn("tried to report failed launch for a known good patch, ignoring",
			"patch_number", patch.Number)

		return
	}

	if s.IsKnownBadPatch(patch) {
		return
	}

	s.FailedPatches = append(s.FailedPatches, patch.Number)
}

// MarkPatchAsGood is the symmetric counterpart of MarkPatchAsBad.
func (s *State) MarkPatchAsGood(patch PatchInfo) {
	if s.IsKnownBadPatch(patch) {
		patchlog.Logger().Warn("tried to report successful launch for a known bad patch, ignoring",
			"patch_number", patch.Number)

		return
	}

	if s.IsKnownGoodPatch(patch) {
		return
	}

	s.SuccessfulPatches = append(s.SuccessfulPatches, patch.Number)
}

// SetCurrentSlot sets current_slot_index. A nil idx means "no slot".
func (s *State) SetCurrentSlot(idx *int) {
	s.CurrentSlotIndex = idx
}

// AvailableSlot chooses the target slot for the next install: empty
// slot table -> 0; current slot 0 -> 1; otherwise -> 0. This is
// the classic A/B ping-pong: installs never overwrite the running
// patch.
func (s *State) AvailableSlot() int {
	if len(s.Slots) == 0 {
		return 0
	}

	if s.CurrentSlotIndex != nil && *s.CurrentSlotIndex == 0 {
		return 1
	}

	return 0
}

// ClearSlot writes an empty default slot record at index. If index is
// past the end of the slot table, the table is left unchanged. Used to
// invalidate a slot's record before its directory is mutated (the
// "pre-clear save").
func (s *State) ClearSlot(index int) {
	if len(s.Slots) < index+1 {
		return
	}

	s.Slots[index] = Slot{}
}

// SetSlot records a populated slot at index, first growing the slot
// table with empty defaults up to index if it is past the end.
func (s *State) SetSlot(index int, path string, patchNumber uint64) {
	if len(s.Slots) < index+1 {
		grown := make([]Slot, index+1)
		copy(grown, s.Slots)
		s.Slots = grown
	}

	s.Slots[index] = Slot{Path: path, PatchNumber: patchNumber}
}

// RaiseLatestDownloadedPatch sets latest_downloaded_patch to
// max(prev, number) -- it never decreases, even on reinstall of an
// older patch number (the "monotone floor").
func (s *State) RaiseLatestDownloadedPatch(number uint64) {
	if s.LatestDownloadedPatch == nil || *s.LatestDownloadedPatch < number {
		n := number
		s.LatestDownloadedPatch = &n

		return
	}

	patchlog.Logger().Warn("installed patch below latest downloaded patch floor",
		"patch_number", number, "floor", *s.LatestDownloadedPatch)
}

// LatestBootableSlotIndex returns the index of the slot holding the
// highest patch number among slots that are not blacklisted and whose
// artifact file still exists on disk, or nil if none qualify. This is
// the rollback primitive behind ActivateLatestBootablePatch.
func (s *State) LatestBootableSlotIndex(fileExists func(path string) bool) *int {
	best := -1
	var bestNumber uint64

	for i, slot := range s.Slots {
		if slot.isEmpty() {
			continue
		}

		if containsUint64(s.FailedPatches, slot.PatchNumber) {
			continue
		}

		if !fileExists(slot.Path) {
			continue
		}

		if best == -1 || slot.PatchNumber > bestNumber {
			best = i
			bestNumber = slot.PatchNumber
		}
	}

	if best == -1 {
		return nil
	}

	idx := best

	return &idx
}

func containsUint64(haystack []uint64, needle uint64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}

	return false
}
