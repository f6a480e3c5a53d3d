package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkhouse/copydesk/internal/history"
	"github.com/inkhouse/copydesk/internal/pipeline"
	"github.com/inkhouse/copydesk/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the copydesk HTTP API",
	Long:  `Starts the HTTP server exposing manuscript upsert, pipeline runs, continuity ledgers, and reference search.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().String("addr", "", "listen address (overrides config)")
	serverCmd.Flags().Bool("allow-all-origins", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	allowAll, _ := cmd.Flags().GetBool("allow-all-origins")

	provider, err := createLLMProviderFromConfig(cfg)
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
		fmt.Fprintf(os.Stderr, "Warning: %v\nReference search and grounding are disabled.\n", err)
		retriever = nil
	}

	runLog := history.NewStore(database)
	orch := pipeline.New(repo, provider, cfg.Model, retriever)
	orch.SetRecorder(runLog)

	srv := server.New(server.Config{Addr: addr, AllowAll: allowAll}, repo, orch, retriever)
	srv.SetHistory(runLog)

	// Graceful shutdown on SIGINT/SIGTERM.
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
