package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkhouse/copydesk/internal/ingest"
	"github.com/inkhouse/copydesk/internal/progress"
	"github.com/inkhouse/copydesk/internal/retrieval"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index reference documents (style guides, genre conventions) for retrieval",
	Long: `Walks a directory of markdown and text reference documents, chunks and
embeds them, and stores each file as a searchable corpus. Defaults to the
configured corpus directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("category", "style", "category recorded on every chunk (style, genre, glossary)")
	ingestCmd.Flags().Int("chunk-words", 0, "chunk size target in words (overrides config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.CorpusDir
	if len(args) > 0 {
		dir = args[0]
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("corpus directory %s: %w", dir, err)
	}

	category, _ := cmd.Flags().GetString("category")
	chunkWords, _ := cmd.Flags().GetInt("chunk-words")
	if chunkWords == 0 {
		chunkWords = cfg.ChunkWords
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	index := openIndex(database)
	ing := ingest.New(index, embedder, progress.NewReporter())
	stats, err := ing.IngestDirectory(ctx, dir, ingest.Options{
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
		TargetWords: chunkWords,
		Category:    category,
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("Ingested %d documents (%d chunks) in %s (%.0f chunks/s)\n",
		stats.FilesProcessed, stats.Chunks, elapsed.Round(time.Millisecond),
		float64(stats.Chunks)/elapsed.Seconds())
	for _, ingestErr := range stats.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", ingestErr)
	}

	// Sanity check: the freshly written corpora should answer a query.
	if len(stats.Corpora) > 0 {
		ret := retrieval.New(index, embedder)
		refs, err := ret.QueryReferences(ctx, "punctuation and usage rules", stats.Corpora, retrieval.Options{TopK: 1})
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "Warning: retrieval check failed: %v\n", err)
		case len(refs) == 0:
			fmt.Fprintln(os.Stderr, "Warning: retrieval check returned no references")
		default:
			fmt.Printf("Retrieval check: %s (score %.2f)\n", refs[0].Citation, refs[0].Score)
		}
	}
	return nil
}
