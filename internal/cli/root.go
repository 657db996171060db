package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "variant",
	Short: "Experiment assignment and results engine",
	Long: `variant is a feature experimentation engine.

Define experiments with weighted variants, deterministically assign callers,
record outcome metrics, and analyze per-variant results.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
