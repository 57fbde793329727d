package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "donations",
	Short: "Food bank donations service",
	Long:  `Food bank donations service: receives donations, allocates stock FEFO and serves inventory and accountability reports`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
