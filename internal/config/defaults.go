package config

// ModelPreset describes the model pair used for a provider.
type ModelPreset struct {
	Model          string
	EmbeddingModel string
}

// modelPresets maps each provider to its default model choices. Embeddings
// come from OpenAI except under ollama, which is fully local.
var modelPresets = map[ProviderType]ModelPreset{
	ProviderAnthropic: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:    {Model: "gpt-4o", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultExcludes are glob patterns excluded from ingestion by default.
var DefaultExcludes = []string{
	"README.md",
	"CHANGELOG.md",
	"LICENSE*",
	"drafts/**",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             "claude-sonnet-4-5-20250929",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		StyleGuide:        "",
		CorpusDir:         "corpora",
		DatabasePath:      ".copydesk/copydesk.db",
		Include:           []string{"**"},
		Exclude:           DefaultExcludes,
		ChunkWords:        0, // chunker default
		TopK:              5,
		MinScore:          0.2,
		RequestsPerMinute: 60,
		Server: ServerConfig{
			Addr: ":8114",
		},
	}
}

// GetPreset returns the model preset for the given provider, falling back to
// the anthropic preset for unknown providers.
func GetPreset(provider ProviderType) ModelPreset {
	if preset, ok := modelPresets[provider]; ok {
		return preset
	}
	return modelPresets[ProviderAnthropic]
}
