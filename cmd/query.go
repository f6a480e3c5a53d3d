package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkhouse/copydesk/internal/retrieval"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Search the reference corpora",
	Long:  `Searches the indexed style guides and genre references with a natural language query and prints the cited matches.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("limit", retrieval.DefaultTopK, "maximum number of results")
	queryCmd.Flags().String("corpus", "", "comma-separated corpus ids (default: the style guide set)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	corpusFlag, _ := cmd.Flags().GetString("corpus")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	retriever, err := openRetriever(cfg, database)
	if err != nil {
		return err
	}

	corpora := retrieval.StyleGuideCorpora(cfg.StyleGuide)
	if corpusFlag != "" {
		corpora = nil
		for _, part := range strings.Split(corpusFlag, ",") {
			if part = strings.TrimSpace(part); part != "" {
				corpora = append(corpora, part)
			}
		}
	}

	results, err := retriever.QueryReferences(ctx, queryText, corpora, retrieval.Options{
		TopK:     limit,
		MinScore: cfg.MinScore,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No matching references. Run `copydesk ingest` to index your corpora.")
		return nil
	}
	fmt.Print(retrieval.FormatReferenceContext(results, verbose))
	return nil
}
