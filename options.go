package wisp

import (
	domainsearch "github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/log"
)

// clientConfig holds configuration for Client construction. Defaults come
// from internal/config.
type clientConfig struct {
	app             config.AppConfig
	logger          *log.Logger
	embedder        domainsearch.Embedder
	keywordOnly     bool
	codeSearchLimit int
}

func newClientConfig() *clientConfig {
	return &clientConfig{app: config.NewAppConfig()}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithConfig replaces the whole application configuration. Options applied
// after this one modify the given configuration.
func WithConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.app = cfg
	}
}

// WithLogger sets a custom logger. Without it, a logger is built from the
// configured log level and format.
func WithLogger(l *log.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithEmbedder sets a custom embedding backend, bypassing the configured
// provider.
func WithEmbedder(e domainsearch.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithKeywordOnly disables vector search. The index and the retriever run
// on BM25 alone.
func WithKeywordOnly() Option {
	return func(c *clientConfig) {
		c.keywordOnly = true
	}
}

// WithCodeSearchLimit caps the number of servers the code-search worker
// handles per enrichment run. Zero means no cap.
func WithCodeSearchLimit(n int) Option {
	return func(c *clientConfig) {
		c.codeSearchLimit = n
	}
}

// WithDataDir sets the data directory for the database, tokens file and
// model cache.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.app = c.app.Apply(config.WithDataDir(dir))
	}
}

// WithDBURL sets the database connection URL.
func WithDBURL(url string) Option {
	return func(c *clientConfig) {
		c.app = c.app.Apply(config.WithDBURL(url))
	}
}

// WithVectorExtension sets the path of the sqlite vector extension to load
// on every connection.
func WithVectorExtension(path string) Option {
	return func(c *clientConfig) {
		c.app = c.app.Apply(config.WithVecExtPath(path))
	}
}

// WithRegistryURL overrides the upstream registry base URL.
func WithRegistryURL(url string) Option {
	return func(c *clientConfig) {
		c.app = c.app.Apply(config.WithSources(c.app.Sources().WithRegistryURL(url)))
	}
}

// WithGitHubToken authenticates GitHub REST and code-search requests.
func WithGitHubToken(token string) Option {
	return func(c *clientConfig) {
		c.app = c.app.Apply(config.WithSources(c.app.Sources().WithGitHubToken(token)))
	}
}

// WithLibrariesIOKey authenticates libraries.io requests.
func WithLibrariesIOKey(key string) Option {
	return func(c *clientConfig) {
		c.app = c.app.Apply(config.WithSources(c.app.Sources().WithLibrariesIOKey(key)))
	}
}

// WithOpenAIEmbedding selects an OpenAI-compatible embeddings endpoint as
// the embedding backend.
func WithOpenAIEmbedding(apiKey string) Option {
	return func(c *clientConfig) {
		c.app = c.app.Apply(config.WithEmbedding(config.NewEmbeddingWithOptions(
			config.WithEmbeddingProvider(config.EmbeddingProviderOpenAI),
			config.WithEmbeddingAPIKey(apiKey),
		)))
	}
}
