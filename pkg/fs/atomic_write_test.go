package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"patchcore/pkg/fs"
)

const testContentHello = "hello"

func TestAtomicWriteFile_ContentVisibleAfterWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "final.txt")

	writer := fs.NewAtomicWriter(fs.NewReal())

	if err := writer.WriteWithDefaults(target, strings.NewReader(testContentHello)); err != nil {
		t.Fatalf("WriteWithDefaults: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != testContentHello {
		t.Fatalf("content=%q, want %q", string(got), testContentHello)
	}
}

func TestAtomicWriteFile_OverwritesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "final.txt")

	if err := os.WriteFile(target, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seeding existing file: %v", err)
	}

	writer := fs.NewAtomicWriter(fs.NewReal())

	if err := writer.WriteWithDefaults(target, strings.NewReader(testContentHello)); err != nil {
		t.Fatalf("WriteWithDefaults: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != testContentHello {
		t.Fatalf("content=%q, want %q", string(got), testContentHello)
	}
}

func TestAtomicWriteFile_LeavesNoTempFileBehind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "final.txt")

	writer := fs.NewAtomicWriter(fs.NewReal())

	if err := writer.WriteWithDefaults(target, strings.NewReader(testContentHello)); err != nil {
		t.Fatalf("WriteWithDefaults: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, want exactly 1 (the final file): %v", len(entries), entries)
	}
}
