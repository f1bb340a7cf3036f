package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"patchcore/internal/orchestrator"
)

func newCheckCommand() *Command {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "check",
		Short: "Check whether a patch is available without downloading it",
		Long:  "Sends a patch-check request for the configured app/channel/release and prints whether a patch is available.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			available := orchestrator.CheckForUpdate(ctx)

			if available {
				o.Println("patch available")
			} else {
				o.Println("no patch available")
			}

			return nil
		},
	}
}
