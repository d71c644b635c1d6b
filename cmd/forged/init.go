package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/autoforge/engine/internal/store"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a project's .forge layout",
	Long: `Initialize a directory for use with the engine.

Creates the .forge directory structure (control plane, lock file home,
backlog database) and a starter providers.json. The directory argument is
optional and defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitCmd,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "reinitialize even if .forge already exists")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	absPath, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	forgeDir := filepath.Join(absPath, ".forge")
	if _, err := os.Stat(forgeDir); err == nil && !initForce {
		fmt.Println("directory already initialized; use --force to reinitialize")
		return nil
	}

	controlDir := filepath.Join(forgeDir, "control")
	if err := os.MkdirAll(controlDir, 0o755); err != nil {
		return fmt.Errorf("creating .forge/control: %w", err)
	}
	printStatus("created .forge/control")

	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(forgeDir, "backlog.db"))
	if err != nil {
		return fmt.Errorf("initializing backlog store: %w", err)
	}
	st.Close()
	printStatus("created .forge/backlog.db")

	providersPath := filepath.Join(absPath, "providers.json")
	if _, err := os.Stat(providersPath); os.IsNotExist(err) {
		if err := os.WriteFile(providersPath, []byte(starterProvidersJSON), 0o644); err != nil {
			return fmt.Errorf("writing providers.json: %w", err)
		}
		printStatus("created providers.json (edit defaults.profile and model ids before running)")
	}

	fmt.Printf("\n%s project initialized at %s\n\n", color.GreenString("✓"), absPath)
	fmt.Println("Next steps:")
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Println("  1. export ANTHROPIC_API_KEY=your-key-here")
	}
	fmt.Println("  2. forged run --project-dir " + absPath)
	return nil
}

func printStatus(msg string) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), msg)
}

const starterProvidersJSON = `{
  "defaults": {
    "profile": "anthropic-direct"
  },
  "profiles": {
    "anthropic-direct": {
      "description": "Direct Anthropic API",
      "api_key_env": "ANTHROPIC_API_KEY",
      "models": {
        "opus": "claude-opus-4-20250514",
        "sonnet": "claude-sonnet-4-20250514",
        "haiku": "claude-haiku-3-5-20241022"
      }
    }
  }
}
`
