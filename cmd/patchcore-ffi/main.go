// Command patchcore-ffi is the C-ABI boundary, built with
// -buildmode=c-shared (or c-archive) so a host app can link against it
// directly. Every exported function here is a thin translation between
// C types and the Go engine in internal/config, internal/orchestrator,
// and internal/state -- no domain logic lives in this package.
package main

/*
#include <stdlib.h>

typedef struct AppParameters {
	const char *release_version;
	const char *original_libapp_path;
	const char *vm_path;
	const char *cache_dir;
} AppParameters;
*/
import "C"

import (
	"context"
	"strconv"
	"unsafe"

	"patchcore/internal/config"
	"patchcore/internal/orchestrator"
	"patchcore/internal/patchlog"
)

func appConfigFromC(params *C.AppParameters) config.AppConfig {
	return config.AppConfig{
		CacheDir:           C.GoString(params.cache_dir),
		ReleaseVersion:     C.GoString(params.release_version),
		OriginalLibappPath: C.GoString(params.original_libapp_path),
		VMPath:             C.GoString(params.vm_path),
	}
}

// patchcore_init configures the engine. params describes the running
// app; yamlText is the compiled-in configuration document.
// Errors are logged, never returned: a host that forgets to check a
// return value must not crash.
//
//export patchcore_init
func patchcore_init(params *C.AppParameters, yamlText *C.char) {
	cfg := appConfigFromC(params)

	if err := config.Init(cfg, C.GoString(yamlText)); err != nil {
		patchlog.Logger().Error("failed to initialize updater", "error", err)
	}
}

// patchcore_active_patch_number returns the active patch's number as a
// decimal string, or NULL if none is active. The caller must free the
// result with patchcore_free_string.
//
//export patchcore_active_patch_number
func patchcore_active_patch_number() *C.char {
	patch, ok := orchestrator.ActivePatch()
	if !ok {
		return nil
	}

	return C.CString(strconv.FormatUint(patch.Number, 10))
}

// patchcore_active_path returns the active patch's artifact path, or
// NULL if none is active. The caller must free the result with
// patchcore_free_string.
//
//export patchcore_active_path
func patchcore_active_path() *C.char {
	patch, ok := orchestrator.ActivePatch()
	if !ok {
		return nil
	}

	return C.CString(patch.Path)
}

// patchcore_free_string frees a string returned by this library.
//
//export patchcore_free_string
func patchcore_free_string(s *C.char) {
	if s == nil {
		return
	}

	C.free(unsafe.Pointer(s))
}

// patchcore_check_for_update reports whether a patch is available,
// without downloading it.
//
//export patchcore_check_for_update
func patchcore_check_for_update() C.bool {
	return C.bool(orchestrator.CheckForUpdate(context.Background()))
}

// patchcore_update synchronously checks for, downloads, and installs a
// patch if one is available. Errors are logged, not returned.
//
//export patchcore_update
func patchcore_update() {
	status := orchestrator.Update(context.Background())
	if status == orchestrator.UpdateHadError {
		patchlog.Logger().Error("update failed", "status", status.String())
	}
}

// patchcore_report_successful_launch allowlists the active patch.
//
//export patchcore_report_successful_launch
func patchcore_report_successful_launch() {
	if err := orchestrator.ReportSuccessfulLaunch(); err != nil {
		patchlog.Logger().Error("failed to record launch success", "error", err)
	}
}

// patchcore_report_failed_launch blacklists the active patch and rolls
// back to the highest still-bootable one.
//
//export patchcore_report_failed_launch
func patchcore_report_failed_launch() {
	if err := orchestrator.ReportFailedLaunch(); err != nil {
		patchlog.Logger().Error("failed to record launch failure", "error", err)
	}
}

func main() {}
