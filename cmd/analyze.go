package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkhouse/copydesk/internal/history"
	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/pipeline"
	"github.com/inkhouse/copydesk/internal/retrieval"
	"github.com/inkhouse/copydesk/internal/stages"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [manuscript-file]",
	Short: "Run the editing pipeline against a manuscript",
	Long: `Loads a manuscript file, stores it under a manuscript id, and runs the
requested analysis: the full compliance sequence, the structural pair, or a
single stage. Repeating a run with the same --request-id replays the
recorded outcome instead of calling the model again.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("id", "", "manuscript id (default: file name)")
	analyzeCmd.Flags().String("request-id", "", "idempotency key for this run (default: random)")
	analyzeCmd.Flags().String("mode", "compliance", "analysis mode: compliance, structural, or stage")
	analyzeCmd.Flags().Int("stage", 0, "stage number for --mode stage (1-10)")
	analyzeCmd.Flags().String("title", "", "manuscript title")
	analyzeCmd.Flags().String("genre", "", "manuscript genre, e.g. mystery")
	analyzeCmd.Flags().String("audience", "", "target audience, e.g. adult")
	analyzeCmd.Flags().Bool("json", false, "output the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manuscript: %w", err)
	}

	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = retrieval.Slug(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	requestID, _ := cmd.Flags().GetString("request-id")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = filepath.Base(path)
	}
	genre, _ := cmd.Flags().GetString("genre")
	audience, _ := cmd.Flags().GetString("audience")
	mode, _ := cmd.Flags().GetString("mode")
	stage, _ := cmd.Flags().GetInt("stage")
	jsonOutput, _ := cmd.Flags().GetBool("json")

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
		fmt.Fprintf(os.Stderr, "Warning: %v\nRunning without reference grounding.\n", err)
		retriever = nil
	}

	orch := pipeline.New(repo, provider, cfg.Model, retriever)
	orch.SetRecorder(history.NewStore(database))

	if _, _, err := orch.UpsertManuscript(ctx, pipeline.UpsertRequest{
		ManuscriptID: id,
		RequestID:    uuid.NewString(),
		Content:      string(content),
		Metadata: manuscript.Metadata{
			Title:    title,
			Genre:    genre,
			Audience: audience,
		},
	}); err != nil {
		return err
	}
	req := pipeline.RunRequest{
		ManuscriptID: id,
		RequestID:    requestID,
		StyleGuide:   cfg.StyleGuide,
		ReadingLevel: cfg.ReadingLevel,
	}

	var report *pipeline.Report
	switch mode {
	case "compliance":
		report, err = orch.RunCompliance(ctx, req)
	case "structural":
		report, err = orch.RunStructural(ctx, req)
	case "stage":
		report, err = orch.RunStage(ctx, req, stage)
	default:
		return fmt.Errorf("unknown mode %q: must be compliance, structural, or stage", mode)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report)
	return nil
}

func printReport(report *pipeline.Report) {
	if report.Replayed {
		fmt.Println("(replayed from an earlier run with the same request id)")
	}
	fmt.Printf("Manuscript %s — %s\n", report.ManuscriptID, report.Operation)
	fmt.Printf("Overall confidence: %.2f\n\n", report.OverallConfidence)

	for _, result := range report.Results {
		fmt.Printf("Stage %d (%s) — confidence %.2f, %d issues\n",
			result.Stage, result.AgentName, result.Confidence, len(result.Issues))
		if result.Summary != "" {
			fmt.Printf("  %s\n", result.Summary)
		}
		for _, issue := range result.Issues {
			loc := ""
			if issue.Location.Chapter > 0 {
				loc = fmt.Sprintf(" [ch %d", issue.Location.Chapter)
				if issue.Location.Line > 0 {
					loc += fmt.Sprintf(", line %d", issue.Location.Line)
				}
				loc += "]"
			}
			fmt.Printf("  - %s/%s%s: %s\n", issue.Type, issue.Severity, loc, issue.Message)
			if issue.Suggestion != "" {
				fmt.Printf("    suggestion: %s\n", issue.Suggestion)
			}
			if issue.RuleReference != "" {
				fmt.Printf("    reference: %s\n", issue.RuleReference)
			}
		}
		fmt.Println()
	}

	if len(report.LowConfidence) > 0 {
		names := make([]string, 0, len(report.LowConfidence))
		for _, num := range report.LowConfidence {
			if def, ok := stages.ByNumber(num); ok {
				names = append(names, def.Name)
			}
		}
		fmt.Printf("Stages needing review (confidence < %.2f): %s\n",
			pipeline.LowConfidenceThreshold, strings.Join(names, ", "))
	}
}
