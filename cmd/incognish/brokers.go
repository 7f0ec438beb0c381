package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var brokersCmd = &cobra.Command{
	Use:   "brokers",
	Short: "List the broker catalog with each broker's latest status",
	RunE:  runBrokers,
}

func init() {
	rootCmd.AddCommand(brokersCmd)
}

func runBrokers(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	overview, err := a.tracker.Brokers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load brokers: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMETHOD\tSTATUS\tLAST ATTEMPT")
	for _, item := range overview {
		status, last := "-", "-"
		if item.LatestStatus != "" {
			status = string(item.LatestStatus)
		}
		if item.LastAttempt != nil {
			last = item.LastAttempt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Method, status, last)
	}
	return w.Flush()
}
