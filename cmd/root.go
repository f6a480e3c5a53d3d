package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "copydesk",
	Short: "AI-assisted manuscript editing pipeline with grounded style references",
	Long: `Copydesk runs manuscripts through a staged editing pipeline: grammar,
syntax, tense, structure, narrative arc, style, continuity, readability,
and a final quality gate. Findings are grounded in indexed style guides
and genre references, and every issue carries its citation.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".copydesk.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
