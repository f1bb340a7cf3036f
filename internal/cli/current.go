package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"patchcore/internal/orchestrator"
)

func newCurrentCommand() *Command {
	flags := flag.NewFlagSet("current", flag.ContinueOnError)
	showHash := flags.Bool("hash", false, "also print the SHA-256 of the active artifact")

	return &Command{
		Flags: flags,
		Usage: "current [--hash]",
		Short: "Print the patch that will boot next",
		Long:  "Prints the currently active patch's number and path, or reports that none is active.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			patch, ok := orchestrator.ActivePatch()
			if !ok {
				o.Println("no active patch")
				return nil
			}

			o.Printf("number: %d\n", patch.Number)
			o.Printf("path:   %s\n", patch.Path)

			if *showHash {
				digest, err := hashFile(patch.Path)
				if err != nil {
					return fmt.Errorf("hashing active artifact: %w", err)
				}

				o.Printf("sha256: %s\n", digest)
			}

			return nil
		},
	}
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
