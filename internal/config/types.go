package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level copydesk configuration, corresponding to
// .copydesk.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`

	StyleGuide   string `yaml:"style_guide" koanf:"style_guide"`
	ReadingLevel string `yaml:"reading_level" koanf:"reading_level"`

	CorpusDir    string   `yaml:"corpus_dir" koanf:"corpus_dir"`
	DatabasePath string   `yaml:"database_path" koanf:"database_path"`
	Include      []string `yaml:"include" koanf:"include"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
	ChunkWords   int      `yaml:"chunk_words" koanf:"chunk_words"`

	TopK              int     `yaml:"top_k" koanf:"top_k"`
	MinScore          float64 `yaml:"min_score" koanf:"min_score"`
	RequestsPerMinute int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`

	Server ServerConfig `yaml:"server" koanf:"server"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr" koanf:"addr"`
}
