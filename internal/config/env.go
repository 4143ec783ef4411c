// Package config provides application configuration.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Field names map directly to environment variables (no prefix).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8000)
	Port int `envconfig:"PORT" default:"8000"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.wisp
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/wisp.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// TokensFile is the path of the tokens file served by /keys.
	// Env: TOKENS_FILE
	// Default: {data_dir}/.tokens
	TokensFile string `envconfig:"TOKENS_FILE"`

	// GitHubToken authenticates GitHub REST and code-search requests.
	// Env: GITHUB_TOKEN
	GitHubToken string `envconfig:"GITHUB_TOKEN"`

	// LibrariesIOKey authenticates libraries.io requests.
	// Env: LIBRARIES_IO_API_KEY
	LibrariesIOKey string `envconfig:"LIBRARIES_IO_API_KEY"`

	// SQLiteVecPath overrides the sqlite vector extension location.
	// Env: SQLITE_VEC_PATH
	SQLiteVecPath string `envconfig:"SQLITE_VEC_PATH"`

	// CallTimeout is the tool-invocation timeout in seconds.
	// Env: CALL_TIMEOUT (default: 60)
	CallTimeout float64 `envconfig:"CALL_TIMEOUT" default:"60"`

	// ExtractTimeout is the tool-extraction session timeout in seconds.
	// Env: EXTRACT_TIMEOUT (default: 30)
	ExtractTimeout float64 `envconfig:"EXTRACT_TIMEOUT" default:"30"`

	// SearchLimit is the default search result limit.
	// Env: SEARCH_LIMIT (default: 10)
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"10"`

	// Embedding configures the embedding backend.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`
}

// EmbeddingEnv holds environment configuration for the embedding backend.
type EmbeddingEnv struct {
	// Provider selects the backend (hugot or openai).
	// Env: EMBEDDING_PROVIDER (default: hugot)
	Provider string `envconfig:"PROVIDER" default:"hugot"`

	// BaseURL is the OpenAI-compatible base URL.
	// Env: EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// APIKey is the API key for hosted providers.
	// Env: EMBEDDING_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Model is the model identifier.
	// Env: EMBEDDING_MODEL (default: google/embeddinggemma-300m)
	Model string `envconfig:"MODEL" default:"google/embeddinggemma-300m"`

	// ModelPath is the local model directory for the hugot provider.
	// Env: EMBEDDING_MODEL_PATH
	ModelPath string `envconfig:"MODEL_PATH"`

	// Dimension is the vector dimension.
	// Env: EMBEDDING_DIMENSION (default: 768)
	Dimension int `envconfig:"DIMENSION" default:"768"`

	// BatchSize is the number of documents encoded per batch.
	// Env: EMBEDDING_BATCH_SIZE (default: 16)
	BatchSize int `envconfig:"BATCH_SIZE" default:"16"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.TokensFile != "" {
		cfg = cfg.Apply(WithTokensPath(e.TokensFile))
	}
	if e.SQLiteVecPath != "" {
		cfg = cfg.Apply(WithVecExtPath(e.SQLiteVecPath))
	}
	if e.CallTimeout > 0 {
		cfg = cfg.Apply(WithCallTimeout(time.Duration(e.CallTimeout * float64(time.Second))))
	}
	if e.ExtractTimeout > 0 {
		cfg = cfg.Apply(WithExtractTimeout(time.Duration(e.ExtractTimeout * float64(time.Second))))
	}
	if e.SearchLimit > 0 {
		cfg = cfg.Apply(WithSearchLimit(e.SearchLimit))
	}

	sources := NewSources()
	if e.GitHubToken != "" {
		sources = sources.WithGitHubToken(e.GitHubToken)
	}
	if e.LibrariesIOKey != "" {
		sources = sources.WithLibrariesIOKey(e.LibrariesIOKey)
	}
	cfg = cfg.Apply(WithSources(sources))

	return cfg.Apply(WithEmbedding(e.Embedding.ToEmbedding()))
}

// ToEmbedding converts EmbeddingEnv to Embedding.
func (e EmbeddingEnv) ToEmbedding() Embedding {
	opts := []EmbeddingOption{
		WithEmbeddingProvider(parseEmbeddingProvider(e.Provider)),
		WithEmbeddingModel(e.Model),
		WithEmbeddingDimension(e.Dimension),
		WithEmbeddingBatchSize(e.BatchSize),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithEmbeddingBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithEmbeddingAPIKey(e.APIKey))
	}
	if e.ModelPath != "" {
		opts = append(opts, WithEmbeddingModelPath(e.ModelPath))
	}
	return NewEmbeddingWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

// parseEmbeddingProvider parses an embedding provider string.
func parseEmbeddingProvider(s string) EmbeddingProvider {
	switch strings.ToLower(s) {
	case "openai":
		return EmbeddingProviderOpenAI
	default:
		return EmbeddingProviderHugot
	}
}
