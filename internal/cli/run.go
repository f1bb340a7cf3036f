package cli

import (
	"context"
	"io"
	"sort"
)

// commands returns the full set of patchctl subcommands, built fresh
// each call since pflag.FlagSet is single-use.
func commands() map[string]*Command {
	cmds := []*Command{
		newCheckCommand(),
		newCurrentCommand(),
		newUpdateCommand(),
		newReportSuccessCommand(),
		newReportFailureCommand(),
		newShellCommand(),
	}

	byName := make(map[string]*Command, len(cmds))
	for _, c := range cmds {
		byName[c.Name()] = c
	}

	return byName
}

// Run dispatches argv[0] to the matching subcommand and returns the
// process exit code. ctx should be canceled on SIGINT/SIGTERM by the
// caller so in-flight network/install operations unwind cleanly.
func Run(ctx context.Context, out, errOut io.Writer, argv []string) int {
	o := NewIO(out, errOut)
	cmds := commands()

	if len(argv) == 0 {
		printUsage(o, cmds)
		return 1
	}

	name := argv[0]

	if name == "help" || name == "--help" || name == "-h" {
		printUsage(o, cmds)
		return o.Finish()
	}

	cmd, ok := cmds[name]
	if !ok {
		o.ErrPrintln("error: unknown command:", name)
		printUsage(o, cmds)
		return 1
	}

	code := cmd.Run(ctx, o, argv[1:])
	if finishCode := o.Finish(); finishCode != 0 {
		return finishCode
	}

	return code
}

func printUsage(o *IO, cmds map[string]*Command) {
	o.Println("Usage: patchctl <command> [flags]")
	o.Println()
	o.Println("Commands:")

	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		o.Println(cmds[name].HelpLine())
	}
}
