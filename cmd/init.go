package cmd

import (
	"github.com/spf13/cobra"

	"github.com/inkhouse/copydesk/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize copydesk configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure copydesk and generates a .copydesk.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
