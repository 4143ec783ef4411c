// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8000
	DefaultLogLevel       = "INFO"
	DefaultSearchLimit    = 10
	MaxSearchLimit        = 100
	DefaultCandidateLimit = 100
	DefaultCallTimeout    = 60 * time.Second
	DefaultExtractTimeout = 30 * time.Second
	DefaultEmbeddingDim   = 768
	DefaultEmbeddingModel = "google/embeddinggemma-300m"
	DefaultEmbeddingBatch = 16
	DefaultCommitEvery    = 10

	DefaultSourceTimeout       = 10 * time.Second
	DefaultSourceMaxRetries    = 3
	DefaultSourceInitialDelay  = 2 * time.Second
	DefaultSourceBackoffFactor = 2.0
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// EmbeddingProvider selects the embedding backend.
type EmbeddingProvider string

// EmbeddingProvider values.
const (
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
	EmbeddingProviderHugot  EmbeddingProvider = "hugot"
)

// Endpoint configures one outbound HTTP source: base URL, auth, retry
// tuning, and the politeness interval between consecutive requests.
type Endpoint struct {
	baseURL       string
	token         string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	minInterval   time.Duration
}

// NewEndpoint creates an Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultSourceTimeout,
		maxRetries:    DefaultSourceMaxRetries,
		initialDelay:  DefaultSourceInitialDelay,
		backoffFactor: DefaultSourceBackoffFactor,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Token returns the bearer token or API key, if any.
func (e Endpoint) Token() string { return e.token }

// Timeout returns the per-request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the first backoff delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// MinInterval returns the politeness delay between consecutive requests.
func (e Endpoint) MinInterval() time.Duration { return e.minInterval }

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithToken sets the bearer token or API key.
func WithToken(token string) EndpointOption {
	return func(e *Endpoint) { e.token = token }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the first backoff delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithMinInterval sets the politeness delay.
func WithMinInterval(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.minInterval = d }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Sources holds the per-source endpoint configuration for the enrichment
// pipeline and the upstream registry.
type Sources struct {
	registry    Endpoint
	github      Endpoint
	npm         Endpoint
	pypi        Endpoint
	docker      Endpoint
	glama       Endpoint
	librariesIO Endpoint
	codeSearch  Endpoint
}

// NewSources creates a Sources with the production defaults for every source.
func NewSources() Sources {
	return Sources{
		registry: NewEndpointWithOptions(
			WithBaseURL("https://registry.modelcontextprotocol.io/v0.1"),
			WithTimeout(30*time.Second),
		),
		github: NewEndpointWithOptions(
			WithBaseURL("https://api.github.com"),
			WithInitialDelay(5*time.Second),
			WithMinInterval(500*time.Millisecond),
		),
		npm: NewEndpointWithOptions(
			WithBaseURL("https://api.npmjs.org"),
			WithMinInterval(100*time.Millisecond),
		),
		pypi: NewEndpointWithOptions(
			WithBaseURL("https://pypistats.org/api"),
			WithMinInterval(200*time.Millisecond),
		),
		docker: NewEndpointWithOptions(
			WithBaseURL("https://hub.docker.com"),
			WithMinInterval(200*time.Millisecond),
		),
		glama: NewEndpointWithOptions(
			WithBaseURL("https://glama.ai/api/mcp/v1"),
			WithTimeout(15*time.Second),
		),
		librariesIO: NewEndpointWithOptions(
			WithBaseURL("https://libraries.io/api"),
			WithInitialDelay(30*time.Second),
			WithMinInterval(1500*time.Millisecond),
		),
		codeSearch: NewEndpointWithOptions(
			WithBaseURL("https://api.github.com"),
			WithTimeout(15*time.Second),
			WithMinInterval(2500*time.Millisecond),
		),
	}
}

// Registry returns the upstream registry endpoint.
func (s Sources) Registry() Endpoint { return s.registry }

// GitHub returns the GitHub REST endpoint.
func (s Sources) GitHub() Endpoint { return s.github }

// NPM returns the npm downloads endpoint.
func (s Sources) NPM() Endpoint { return s.npm }

// PyPI returns the pypistats endpoint.
func (s Sources) PyPI() Endpoint { return s.pypi }

// Docker returns the Docker Hub endpoint.
func (s Sources) Docker() Endpoint { return s.docker }

// Glama returns the Glama registry endpoint.
func (s Sources) Glama() Endpoint { return s.glama }

// LibrariesIO returns the libraries.io endpoint.
func (s Sources) LibrariesIO() Endpoint { return s.librariesIO }

// CodeSearch returns the GitHub code-search endpoint.
func (s Sources) CodeSearch() Endpoint { return s.codeSearch }

// WithRegistryURL returns a copy with the upstream registry base URL set.
func (s Sources) WithRegistryURL(url string) Sources {
	s.registry.baseURL = url
	return s
}

// WithGitHubToken returns a copy with the token set on both GitHub endpoints.
func (s Sources) WithGitHubToken(token string) Sources {
	s.github.token = token
	s.codeSearch.token = token
	return s
}

// WithLibrariesIOKey returns a copy with the libraries.io API key set.
func (s Sources) WithLibrariesIOKey(key string) Sources {
	s.librariesIO.token = key
	return s
}

// Embedding configures the embedding backend.
type Embedding struct {
	provider  EmbeddingProvider
	baseURL   string
	apiKey    string
	model     string
	modelPath string
	dimension int
	batchSize int
}

// NewEmbedding creates an Embedding with defaults.
func NewEmbedding() Embedding {
	return Embedding{
		provider:  EmbeddingProviderHugot,
		model:     DefaultEmbeddingModel,
		dimension: DefaultEmbeddingDim,
		batchSize: DefaultEmbeddingBatch,
	}
}

// Provider returns the embedding backend kind.
func (e Embedding) Provider() EmbeddingProvider { return e.provider }

// BaseURL returns the OpenAI-compatible base URL, if any.
func (e Embedding) BaseURL() string { return e.baseURL }

// APIKey returns the API key for hosted providers.
func (e Embedding) APIKey() string { return e.apiKey }

// Model returns the model identifier.
func (e Embedding) Model() string { return e.model }

// ModelPath returns the local model directory for the hugot provider.
func (e Embedding) ModelPath() string { return e.modelPath }

// Dimension returns the vector dimension.
func (e Embedding) Dimension() int { return e.dimension }

// BatchSize returns the number of documents encoded per batch.
func (e Embedding) BatchSize() int { return e.batchSize }

// EmbeddingOption is a functional option for Embedding.
type EmbeddingOption func(*Embedding)

// WithEmbeddingProvider sets the backend kind.
func WithEmbeddingProvider(p EmbeddingProvider) EmbeddingOption {
	return func(e *Embedding) { e.provider = p }
}

// WithEmbeddingBaseURL sets the OpenAI-compatible base URL.
func WithEmbeddingBaseURL(url string) EmbeddingOption {
	return func(e *Embedding) { e.baseURL = url }
}

// WithEmbeddingAPIKey sets the API key.
func WithEmbeddingAPIKey(key string) EmbeddingOption {
	return func(e *Embedding) { e.apiKey = key }
}

// WithEmbeddingModel sets the model identifier.
func WithEmbeddingModel(model string) EmbeddingOption {
	return func(e *Embedding) { e.model = model }
}

// WithEmbeddingModelPath sets the local model directory.
func WithEmbeddingModelPath(path string) EmbeddingOption {
	return func(e *Embedding) { e.modelPath = path }
}

// WithEmbeddingDimension sets the vector dimension.
func WithEmbeddingDimension(dim int) EmbeddingOption {
	return func(e *Embedding) {
		if dim > 0 {
			e.dimension = dim
		}
	}
}

// WithEmbeddingBatchSize sets the encode batch size.
func WithEmbeddingBatchSize(n int) EmbeddingOption {
	return func(e *Embedding) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEmbeddingWithOptions creates an Embedding with functional options.
func NewEmbeddingWithOptions(opts ...EmbeddingOption) Embedding {
	e := NewEmbedding()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host           string
	port           int
	dataDir        string
	dbURL          string
	logLevel       string
	logFormat      LogFormat
	tokensPath     string
	vecExtPath     string
	callTimeout    time.Duration
	extractTimeout time.Duration
	searchLimit    int
	candidateLimit int
	embedding      Embedding
	sources        Sources
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wisp"
	}
	return filepath.Join(home, ".wisp")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:           DefaultHost,
		port:           DefaultPort,
		dataDir:        dataDir,
		dbURL:          "sqlite:///" + filepath.Join(dataDir, "wisp.db"),
		logLevel:       DefaultLogLevel,
		logFormat:      LogFormatPretty,
		tokensPath:     filepath.Join(dataDir, ".tokens"),
		callTimeout:    DefaultCallTimeout,
		extractTimeout: DefaultExtractTimeout,
		searchLimit:    DefaultSearchLimit,
		candidateLimit: DefaultCandidateLimit,
		embedding:      NewEmbedding(),
		sources:        NewSources(),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// TokensPath returns the path of the tokens file served by /keys.
func (c AppConfig) TokensPath() string { return c.tokensPath }

// VecExtPath returns the override path for the sqlite vector extension.
func (c AppConfig) VecExtPath() string { return c.vecExtPath }

// CallTimeout returns the tool-invocation timeout.
func (c AppConfig) CallTimeout() time.Duration { return c.callTimeout }

// ExtractTimeout returns the tool-extraction session timeout.
func (c AppConfig) ExtractTimeout() time.Duration { return c.extractTimeout }

// SearchLimit returns the default search result limit.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// CandidateLimit returns the retriever candidate pool size per page walk.
func (c AppConfig) CandidateLimit() int { return c.candidateLimit }

// Embedding returns the embedding configuration.
func (c AppConfig) Embedding() Embedding { return c.embedding }

// Sources returns the per-source endpoint configuration.
func (c AppConfig) Sources() Sources { return c.sources }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || strings.Contains(c.dbURL, "wisp.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "wisp.db")
		}
		if c.tokensPath == "" || strings.HasSuffix(c.tokensPath, ".tokens") {
			c.tokensPath = filepath.Join(dir, ".tokens")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithTokensPath sets the tokens file path.
func WithTokensPath(path string) AppConfigOption {
	return func(c *AppConfig) { c.tokensPath = path }
}

// WithVecExtPath sets the sqlite vector extension path.
func WithVecExtPath(path string) AppConfigOption {
	return func(c *AppConfig) { c.vecExtPath = path }
}

// WithCallTimeout sets the tool-invocation timeout.
func WithCallTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithExtractTimeout sets the tool-extraction timeout.
func WithExtractTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.extractTimeout = d
		}
	}
}

// WithSearchLimit sets the default search result limit.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithCandidateLimit sets the retriever candidate pool size.
func WithCandidateLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.candidateLimit = n
		}
	}
}

// WithEmbedding sets the embedding configuration.
func WithEmbedding(e Embedding) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// WithSources sets the per-source endpoint configuration.
func WithSources(s Sources) AppConfigOption {
	return func(c *AppConfig) { c.sources = s }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Tokens and API keys are shown as presence flags only.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("db_url", c.dbURL),
		slog.String("log_level", c.logLevel),
		slog.String("embedding_provider", string(c.embedding.provider)),
		slog.String("embedding_model", c.embedding.model),
		slog.Int("embedding_dimension", c.embedding.dimension),
		slog.Bool("github_token_set", c.sources.github.token != ""),
		slog.Bool("libraries_io_key_set", c.sources.librariesIO.token != ""),
		slog.Bool("vec_extension_set", c.vecExtPath != ""),
	}
}
