package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/autoforge/engine/internal/graph"
	"github.com/autoforge/engine/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-shot backlog summary",
	Long: `Opens the project's backlog store, prints passing/in-progress/pending
counts and the total, and lists blocked features alongside what is blocking them.
Unlike "run", this does not dispatch any workers or take the project lock.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(projectDir, ".forge", "backlog.db"))
	if err != nil {
		return fmt.Errorf("open backlog store: %w", err)
	}
	defer st.Close()

	counts, err := st.Counts(ctx)
	if err != nil {
		return fmt.Errorf("read counts: %w", err)
	}
	pending := counts.Total - counts.Passing - counts.InProgress

	fmt.Printf("%s %d   %s %d   %s %d   total %d\n",
		color.GreenString("passing"), counts.Passing,
		color.YellowString("in-progress"), counts.InProgress,
		color.New(color.FgHiBlack).Sprint("pending"), pending,
		counts.Total,
	)

	snap, err := st.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	blocked := graph.BlockedFeatures(snap, 0)
	if len(blocked) == 0 {
		fmt.Println("\nno blocked features")
		return nil
	}

	fmt.Println("\nblocked:")
	for _, b := range blocked {
		deps := make([]string, len(b.BlockedBy))
		for i, d := range b.BlockedBy {
			deps[i] = fmt.Sprintf("#%d", d)
		}
		fmt.Printf("  #%d %s  blocked by %v\n", b.Feature.ID, b.Feature.Name, deps)
	}
	return nil
}
