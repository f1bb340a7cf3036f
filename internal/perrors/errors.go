// Package perrors defines the sentinel error kinds the patch lifecycle
// engine surfaces to its callers.
package perrors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Wrap these with fmt.Errorf("%w: ...") to attach
// detail; callers match with errors.Is.
var (
	// ErrInvalidArgument signals a bad caller-supplied value: malformed
	// compiled-in YAML, or an attempt to install a blacklisted patch.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState signals an operation that requires state which
	// isn't there, e.g. reporting a launch with no current patch.
	ErrInvalidState = errors.New("invalid state")

	// ErrBadServerResponse signals a patch-check response that claims
	// an update is available but omits the patch object.
	ErrBadServerResponse = errors.New("bad server response")

	// ErrFailedToSaveState signals an I/O failure persisting state.json.
	ErrFailedToSaveState = errors.New("failed to save state")

	// ErrNotInitialized signals a core operation invoked before a
	// successful Init call.
	ErrNotInitialized = errors.New("config store not initialized")
)

// InvalidArgument wraps ErrInvalidArgument with the offending field and detail.
func InvalidArgument(field, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, field, detail)
}

// InvalidState wraps ErrInvalidState with a human-readable detail.
func InvalidState(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, detail)
}
