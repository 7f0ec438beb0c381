package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the latest request per broker",
	RunE:  runSnapshot,
}

var snapshotLabel string

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotLabel, "label", "l", "", "Snapshot label")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.tracker.TakeSnapshot(cmd.Context(), snapshotLabel)
	if err != nil {
		return fmt.Errorf("failed to take snapshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %d saved.\n", id)
	return nil
}
