package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/inkhouse/copydesk/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing reference search and manuscript inspection tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		repo := openRepository(database)
		retriever, err := openRetriever(cfg, database)
		if err != nil {
			// Search degrades gracefully; manuscript tools still work.
			fmt.Fprintf(os.Stderr, "Warning: %v\nReference search is disabled.\n", err)
			retriever = nil
		}

		mcpserver.Version = Version
		fmt.Fprintln(os.Stderr, "copydesk MCP server started on stdio")

		srv := mcpserver.NewServer(repo, retriever)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
