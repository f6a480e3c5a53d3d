package cmd

import (
	"fmt"
	"os"

	"github.com/inkhouse/copydesk/internal/config"
	"github.com/inkhouse/copydesk/internal/db"
	"github.com/inkhouse/copydesk/internal/embeddings"
	"github.com/inkhouse/copydesk/internal/llm"
	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/retrieval"
	"github.com/inkhouse/copydesk/internal/vectorindex"
)

// loadConfig loads and validates the config, providing a friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `copydesk init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// createLLMProviderFromConfig creates the completion provider, rate limited
// per the configured requests-per-minute budget.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)
	}
	return provider, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(provider).EmbeddingModel
	}

	switch provider {
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 768, ""), nil
	default:
		// Anthropic has no embedding endpoint; OpenAI covers it.
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required (used for embeddings when provider is %s)", provider)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// openDatabase opens (and migrates) the sqlite database at the configured
// path.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	return db.Open(cfg.DatabasePath)
}

// openIndex wires the sqlite-backed vector index.
func openIndex(database *db.DB) *vectorindex.Index {
	return vectorindex.New(vectorindex.NewSQLiteStore(database))
}

// openRetriever wires a retriever over the index, or returns nil when no
// embedder can be configured (retrieval then degrades to ungrounded runs).
func openRetriever(cfg *config.Config, database *db.DB) (*retrieval.Retriever, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return retrieval.New(openIndex(database), embedder), nil
}

// openRepository wires the sqlite-backed manuscript repository.
func openRepository(database *db.DB) manuscript.Repository {
	return manuscript.NewSQLiteRepository(database)
}
