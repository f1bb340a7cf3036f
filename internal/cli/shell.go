package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/peterh/liner"

	"patchcore/internal/config"
	"patchcore/internal/orchestrator"
	"patchcore/internal/state"
)

func newShellCommand() *Command {
	flags := flag.NewFlagSet("shell", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "shell",
		Short: "Start an interactive session for driving the update lifecycle",
		Long:  "Opens a readline-style prompt exposing check/update/current/state/report-success/report-failure against the initialized engine, for manual testing without reinvoking the binary each time.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			repl := &shellREPL{ctx: ctx, io: o}
			return repl.run()
		},
	}
}

type shellREPL struct {
	ctx   context.Context
	io    *IO
	liner *liner.State
}

func shellHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".patchctl_history")
}

func (r *shellREPL) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(shellHistoryFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	r.io.Println("patchctl shell -- type 'help' for commands, 'exit' to quit")

	for {
		line, err := r.liner.Prompt("patchctl> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				r.io.Println("\nbye")
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])

		switch cmd {
		case "exit", "quit", "q":
			r.saveHistory()
			return nil

		case "help", "?":
			r.printHelp()

		case "check":
			r.cmdCheck()

		case "update":
			r.cmdUpdate()

		case "current":
			r.cmdCurrent()

		case "state":
			r.cmdState()

		case "report-success":
			r.cmdReportSuccess()

		case "report-failure":
			r.cmdReportFailure()

		default:
			r.io.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *shellREPL) saveHistory() {
	path := shellHistoryFile()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f)
		f.Close()
	}
}

func (r *shellREPL) completer(line string) []string {
	commands := []string{"check", "update", "current", "state", "report-success", "report-failure", "help", "exit"}

	var matches []string

	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			matches = append(matches, c)
		}
	}

	return matches
}

func (r *shellREPL) printHelp() {
	r.io.Println("commands:")
	r.io.Println("  check            check whether a patch is available")
	r.io.Println("  update           check, download, and install a patch if available")
	r.io.Println("  current          print the patch that will boot next")
	r.io.Println("  state            dump the full persistent state document as JSON")
	r.io.Println("  report-success   allowlist the current patch")
	r.io.Println("  report-failure   blacklist the current patch and roll back")
	r.io.Println("  help             show this help")
	r.io.Println("  exit             leave the shell")
}

func (r *shellREPL) cmdCheck() {
	if orchestrator.CheckForUpdate(r.ctx) {
		r.io.Println("patch available")
	} else {
		r.io.Println("no patch available")
	}
}

func (r *shellREPL) cmdUpdate() {
	status := orchestrator.Update(r.ctx)
	r.io.Println(status.String())
}

func (r *shellREPL) cmdCurrent() {
	patch, ok := orchestrator.ActivePatch()
	if !ok {
		r.io.Println("no active patch")
		return
	}

	r.io.Printf("number: %d\n", patch.Number)
	r.io.Printf("path:   %s\n", patch.Path)
}

func (r *shellREPL) cmdState() {
	config.WithConfig(func(cfg config.Resolved) struct{} {
		st := state.Load(cfg.CacheDir, cfg.ReleaseVersion)

		encoded, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			r.io.Printf("error: %v\n", err)
			return struct{}{}
		}

		r.io.Println(string(encoded))

		return struct{}{}
	})
}

func (r *shellREPL) cmdReportSuccess() {
	if err := orchestrator.ReportSuccessfulLaunch(); err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	r.io.Println("reported successful launch")
}

func (r *shellREPL) cmdReportFailure() {
	if err := orchestrator.ReportFailedLaunch(); err != nil {
		r.io.Printf("error: %v\n", err)
		return
	}

	r.io.Println("reported failed launch, rolled back")
}
