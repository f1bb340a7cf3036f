package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func hexDigest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestVerifyHash_MatchingDigestSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact")

	if err := os.WriteFile(path, []byte("artifact-bytes"), 0o644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}

	if err := verifyHash(path, hexDigest("artifact-bytes")); err != nil {
		t.Fatalf("verifyHash with matching digest: %v", err)
	}
}

func TestVerifyHash_MismatchedDigestFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact")

	if err := os.WriteFile(path, []byte("artifact-bytes"), 0o644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}

	if err := verifyHash(path, hexDigest("different-bytes")); err == nil {
		t.Fatal("expected error for mismatched digest")
	}
}

func TestVerifyHash_ToleratesSha256Prefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact")

	if err := os.WriteFile(path, []byte("artifact-bytes"), 0o644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}

	if err := verifyHash(path, "sha256:"+hexDigest("artifact-bytes")); err != nil {
		t.Fatalf("verifyHash with sha256: prefix: %v", err)
	}
}

func TestTrimHashPrefix(t *testing.T) {
	cases := map[string]string{
		"sha256:abcd1234": "abcd1234",
		"abcd1234":        "abcd1234",
		"sha256:":         "sha256:", // nothing after the prefix: left untouched
		"":                "",
	}

	for input, want := range cases {
		if got := trimHashPrefix(input); got != want {
			t.Errorf("trimHashPrefix(%q) = %q, want %q", input, got, want)
		}
	}
}
