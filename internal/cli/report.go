package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"patchcore/internal/orchestrator"
)

func newReportSuccessCommand() *Command {
	flags := flag.NewFlagSet("report-success", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "report-success",
		Short: "Report that the current patch booted successfully",
		Long:  "Allowlists the currently active patch so it is never rolled back automatically.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := orchestrator.ReportSuccessfulLaunch(); err != nil {
				return err
			}

			o.Println("reported successful launch")

			return nil
		},
	}
}

func newReportFailureCommand() *Command {
	flags := flag.NewFlagSet("report-failure", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "report-failure",
		Short: "Report that the current patch failed to boot and roll back",
		Long:  "Blacklists the currently active patch, then activates the highest still-bootable patch.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := orchestrator.ReportFailedLaunch(); err != nil {
				return err
			}

			o.Println("reported failed launch, rolled back")

			return nil
		},
	}
}
