package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	engineexec "github.com/autoforge/engine/internal/exec"
	"github.com/autoforge/engine/internal/version"
)

// projectDir is the global --project-dir flag; every subcommand operates
// relative to it.
var projectDir string

// checkEntrypoint verifies that the configured worker entrypoint is
// available in PATH, via a shelled-out "command -v" (the same
// CommandRunner abstraction the teacher built for mockable command
// execution, rather than a direct os/exec.LookPath call). Returns an
// error with guidance if the entrypoint cannot be found.
func checkEntrypoint(entrypoint string) error {
	runner := engineexec.NewRunner()
	if _, err := runner.Run(context.Background(), "", "sh", "-c", "command -v "+entrypoint); err != nil {
		return fmt.Errorf("worker entrypoint %q not found in PATH\n\n"+
			"The engine drives agents by launching this entrypoint as a\n"+
			"subprocess for every dispatched feature. Install it, or point\n"+
			"defaults.entrypoint at the correct binary in your config.", entrypoint)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "forged",
	Short: "Autonomous coding session orchestrator",
	Long: `forged drives a fleet of LLM-backed worker subprocesses against a
dependency-graphed feature backlog.

Core capabilities:
- Stores features and their dependency edges in a durable backlog
- Resolves the ready set from the dependency graph
- Dispatches role-scoped workers up to a concurrency cap
- Applies rate-limit/backoff policy per worker role
- Exposes a live status view over the dispatch event stream

Available commands:
  run      Start the orchestrator loop against a project's backlog
  status   Print a one-shot backlog summary
  init     Initialize a project's .forge layout
  version  Show version information

Use "forged [command] --help" for more information about a command.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.Get()
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", ".", "project directory containing .forge")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
}
