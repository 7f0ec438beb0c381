// Package main provides the incognish command line: the local web service and
// one-shot run, catalog and snapshot commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "incognish",
	Short: "Automate data broker opt-out requests",
	Long:  "incognish submits opt-out requests to people-search sites and tracks each request until the listing is gone.",
	RunE:  runServe,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
