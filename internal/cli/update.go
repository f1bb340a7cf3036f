package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"patchcore/internal/orchestrator"
)

func newUpdateCommand() *Command {
	flags := flag.NewFlagSet("update", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "update",
		Short: "Check for, download, and install a patch if one is available",
		Long:  "Runs the full update cycle: check, download, inflate if needed, and install into the next available slot.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			status := orchestrator.Update(ctx)

			o.Println(status.String())

			if status == orchestrator.UpdateHadError {
				o.WarnLLM("update failed", "check logs for the wrapped error chain and retry")
			}

			return nil
		},
	}
}
