package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/autoforge/engine/internal/config"
	"github.com/autoforge/engine/internal/orchestrator"
	"github.com/autoforge/engine/internal/provider"
	"github.com/autoforge/engine/internal/store"
	"github.com/autoforge/engine/internal/tui"
)

var (
	runConcurrency   int
	runTestingRatio  float64
	runReviewEnabled bool
	runYolo          bool
	runHeadless      bool
	runProviderFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the orchestrator loop against a project's backlog",
	Long: `Opens the project's backlog store and provider-profile registry,
acquires the project lock, and runs the cooperative dispatch loop until the
backlog completes, the control-plane stop sentinel fires, or the process
receives an interrupt.

By default a status view attaches; pass --headless to run without it.`,
	RunE: runRun,
}

func init() {
	cfg := config.Default()
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", cfg.Defaults.Concurrency, "maximum concurrent workers")
	runCmd.Flags().Float64Var(&runTestingRatio, "testing-ratio", cfg.Defaults.TestingRatio, "testing:coding dispatch ratio")
	runCmd.Flags().BoolVar(&runReviewEnabled, "review", cfg.Defaults.ReviewEnabled, "enable reviewer-worker dispatch")
	runCmd.Flags().BoolVar(&runYolo, "yolo", false, "request the no-browser prompt variant for every launched worker")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "run without the status view")
	runCmd.Flags().StringVar(&runProviderFile, "providers", cfg.Defaults.ProviderFile, "path to the provider-profile JSON, relative to project-dir unless absolute")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("concurrency") {
		runConcurrency = cfg.Defaults.Concurrency
	}
	if !cmd.Flags().Changed("testing-ratio") {
		runTestingRatio = cfg.Defaults.TestingRatio
	}

	if err := checkEntrypoint(cfg.Defaults.Entrypoint); err != nil {
		return err
	}

	providersPath := runProviderFile
	if !filepath.IsAbs(providersPath) {
		providersPath = filepath.Join(projectDir, providersPath)
	}
	registry, err := provider.LoadRegistry(providersPath)
	if err != nil {
		return fmt.Errorf("load provider registry: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nreceived interrupt, shutting down...")
		cancel()
	}()

	st, err := store.Open(ctx, filepath.Join(projectDir, ".forge", "backlog.db"))
	if err != nil {
		return fmt.Errorf("open backlog store: %w", err)
	}
	defer st.Close()

	loop := orchestrator.New(projectDir, st, registry.Active(),
		orchestrator.WithConcurrency(runConcurrency),
		orchestrator.WithTestingRatio(runTestingRatio),
		orchestrator.WithReviewEnabled(runReviewEnabled),
		orchestrator.WithYolo(runYolo),
		orchestrator.WithEntrypoint(cfg.Defaults.Entrypoint),
	)

	if runHeadless {
		go logEventsHeadless(loop)
		outcome, err := loop.Run(ctx)
		if err != nil {
			return fmt.Errorf("orchestration failed: %w", err)
		}
		fmt.Printf("\nfinished: %s\n", outcome)
		return nil
	}

	return runWithStatusView(ctx, loop, st)
}

// logEventsHeadless drains the raw event stream to stdout when running
// without the status view.
func logEventsHeadless(loop *orchestrator.Loop) {
	for line := range loop.Events().SubscribeRaw() {
		fmt.Println(line)
	}
}

// runWithStatusView runs the loop with the bubbletea status view attached,
// grounded on the teacher's own split between headless and TUI run modes.
func runWithStatusView(ctx context.Context, loop *orchestrator.Loop, st *store.Store) error {
	model := tui.New(st, loop.Events())
	program := newProgram(model)

	orchDone := make(chan struct {
		outcome orchestrator.Outcome
		err     error
	}, 1)
	go func() {
		outcome, err := loop.Run(ctx)
		orchDone <- struct {
			outcome orchestrator.Outcome
			err     error
		}{outcome, err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case result := <-orchDone:
		program.Quit()
		<-tuiDone
		if result.err != nil {
			return fmt.Errorf("orchestration failed: %w", result.err)
		}
		fmt.Printf("\nfinished: %s\n", result.outcome)
		return nil
	case err := <-tuiDone:
		return err
	}
}
