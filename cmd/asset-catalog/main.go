package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"asset-catalog/internal/database"
	"asset-catalog/internal/startup"
)

var configPath string

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// handleShutdown cancels the running command on SIGINT or SIGTERM. A sweep
// finishes the items it has started before returning.
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	cancel()
}

var rootCmd = &cobra.Command{
	Use:          "asset-catalog",
	Short:        "Catalog 3D assets and backfill their thumbnails",
	SilenceUsage: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Walk every source and catalog its assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.startWork(); err != nil {
			return err
		}

		sources, err := a.db.ListSources(ctx)
		if err != nil {
			return fmt.Errorf("listing sources: %w", err)
		}
		startup.LogScanInit(len(sources))

		result, err := a.pipeline.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if result.Skipped {
			fmt.Println("A scan is already running.")
			return nil
		}

		fmt.Printf("Scanned %d source(s): %d folder(s), %d asset(s), %d error(s) in %v\n",
			result.Sources, result.Folders, result.Assets, result.Errors, result.Duration)
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Produce thumbnails for one batch of pending assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		parallel, _ := cmd.Flags().GetBool("parallel")
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.startWork(); err != nil {
			return err
		}

		startup.LogBackfillInit(parallel, a.pipeline.Workers(), a.cfg.Backfill.BatchSize, a.pipeline.LeaseKind())

		run := a.pipeline.Backfill
		if parallel {
			run = a.pipeline.BackfillParallel
		}
		result, err := run(ctx)
		if errors.Is(err, context.Canceled) {
			fmt.Printf("Interrupted after %d succeeded, %d skipped, %d to retry\n",
				result.Succeeded, result.Skipped, result.Retried)
			startup.LogShutdownComplete()
			return nil
		}
		if err != nil {
			return fmt.Errorf("backfill failed: %w", err)
		}
		if result.LeaseHeld {
			fmt.Println("Another backfill is running, nothing done.")
			return nil
		}

		fmt.Printf("Selected %d asset(s): %d succeeded, %d skipped, %d to retry (%d sibling skips) in %v\n",
			result.Selected, result.Succeeded, result.Skipped, result.Retried, result.Siblings, result.Duration)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the thumbnail state distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.db.Status(ctx)
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}

		fmt.Printf("Sources: %d\n", report.Sources)
		fmt.Printf("Assets:  %d\n\n", report.Total)
		for _, state := range []string{"pending", "retrying", "exhausted", "succeeded", "skipped"} {
			fmt.Printf("  %-10s %d\n", state, report.States[state])
		}

		if len(report.Reasons) > 0 {
			fmt.Println("\nSkip reasons:")
			reasons := make([]string, 0, len(report.Reasons))
			for r := range report.Reasons {
				reasons = append(reasons, string(r))
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				label := r
				if label == "" {
					label = "(unrecorded)"
				}
				fmt.Printf("  %-24s %d\n", label, report.Reasons[database.SkipReason(r)])
			}
		}

		if len(report.Attempts) > 0 {
			fmt.Println("\nPending by attempts:")
			attempts := make([]int, 0, len(report.Attempts))
			for n := range report.Attempts {
				attempts = append(attempts, n)
			}
			sort.Ints(attempts)
			for _, n := range attempts {
				fmt.Printf("  %d: %d\n", n, report.Attempts[n])
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := startup.GetBuildInfo()
		fmt.Printf("asset-catalog %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildTime)
		fmt.Printf("%s %s/%s\n", info.GoVersion, info.OS, info.Arch)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("ASSET_CATALOG_CONFIG"),
		"Path to the TOML configuration file")

	backfillCmd.Flags().Bool("parallel", false, "Use the worker pool instead of one worker")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(sourceCmd)
}
