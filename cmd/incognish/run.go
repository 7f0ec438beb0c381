package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run opt-out requests in the foreground",
	Long:  "Attempts an opt-out for every broker in the catalog, or only those named with --broker, and prints progress as it goes.",
	RunE:  runRun,
}

var runBrokerIDs []string

func init() {
	runCmd.Flags().StringSliceVarP(&runBrokerIDs, "broker", "b", nil, "Broker id to include (repeatable; default all)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	run, err := a.orchestrator.RunBrokers(ctx, runBrokerIDs, func(line string) {
		fmt.Fprintln(out, line)
	})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if run.ID != "" {
		fmt.Fprintf(out, "Run %s recorded.\n", run.ID)
	}
	return nil
}
