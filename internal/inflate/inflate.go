// Package inflate reconstructs a full patch artifact from a
// zstd-compressed binary diff and the shipped base library.
// Decompression and patch application run on separate goroutines
// connected by an in-process pipe, so the decompressed diff is never
// held in memory as a whole. Each record's copy and extra blocks are
// read into memory in full, however, so memory use grows with the
// largest block in the diff rather than staying at a fixed bound.
package inflate

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Inflate decompresses diffPath (a zstd stream whose payload is a
// bsdiff-style control/diff/extra encoding, see apply.go) against
// basePath and writes the reconstructed artifact to outPath.
//
// File handles are opened up front so missing-file errors surface
// before any goroutine starts.
func Inflate(diffPath, basePath, outPath string) error {
	diffFile, err := os.Open(diffPath)
	if err != nil {
		return fmt.Errorf("opening diff file: %w", err)
	}
	defer diffFile.Close()

	baseFile, err := os.Open(basePath)
	if err != nil {
		return fmt.Errorf("opening base file: %w", err)
	}
	defer baseFile.Close()

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	pr, pw := io.Pipe()

	go decompressToPipe(diffFile, pw)

	applyErr := applyPatch(bufio.NewReader(pr), baseFile, outFile)

	closeErr := outFile.Close()

	if applyErr != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("applying patch: %w", applyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("closing output file: %w", closeErr)
	}

	return nil
}

// decompressToPipe is the producer: it reads the compressed diff file
// and writes decompressed bytes into pw. If it fails, it closes pw
// with the error so the consumer observes a short read and surfaces
// it.
func decompressToPipe(diffFile io.Reader, pw *io.PipeWriter) {
	decoder, err := zstd.NewReader(diffFile)
	if err != nil {
		_ = pw.CloseWithError(fmt.Errorf("opening zstd decoder: %w", err))
		return
	}
	defer decoder.Close()

	_, copyErr := io.Copy(pw, decoder)

	_ = pw.CloseWithError(copyErr)
}
