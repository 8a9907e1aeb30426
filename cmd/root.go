// Package cmd implements the jarvis CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🤖"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: logo + " jarvis — voice-enabled personal assistant",
	Long:  logo + " jarvis — unified request-processing service for a voice-enabled personal assistant",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
}
