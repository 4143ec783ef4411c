// Package wisp provides the discovery and routing layer of an MCP server
// registry: it mirrors the upstream catalog, enriches servers with
// external popularity signals, ranks them, extracts live tool inventories
// and serves hybrid search plus tool invocation.
//
// Basic usage:
//
//	client, err := wisp.New(wisp.WithDataDir(".wisp"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Mirror the upstream registry
//	result, err := client.Ingest.Run(ctx, "")
//
//	// Hybrid search
//	resp, err := client.Retriever.Retrieve(ctx, "read a file", 1, 10)
//
//	// Invoke a tool
//	out, err := client.Gateway.Call(ctx, "io.example/files", "read_file", args)
package wisp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/wisplabs/wisp/application/service"
	domainsearch "github.com/wisplabs/wisp/domain/search"
	"github.com/wisplabs/wisp/infrastructure/enrich"
	"github.com/wisplabs/wisp/infrastructure/fetch"
	"github.com/wisplabs/wisp/infrastructure/gateway"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/infrastructure/provider"
	"github.com/wisplabs/wisp/infrastructure/registry"
	"github.com/wisplabs/wisp/infrastructure/scoring"
	"github.com/wisplabs/wisp/infrastructure/search"
	"github.com/wisplabs/wisp/internal/config"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/log"
)

// ErrClientClosed is returned when Close is called twice.
var ErrClientClosed = errors.New("client already closed")

// Client is the main entry point for the wisp library. Access the
// pipeline stages via struct fields:
//
//	client.Ingest.Run(ctx, "")
//	client.Enrich.Run(ctx, service.EnrichOptions{Workers: []string{"github"}})
//	client.Retriever.Retrieve(ctx, "query", 1, 10)
type Client struct {
	Ingest     *service.Ingest
	Enrich     *service.Enrichment
	Scoring    *service.Scoring
	Index      *service.Index
	Extraction *service.Extraction
	Stats      *service.Statistics
	Retriever  *search.Retriever
	Gateway    *gateway.Gateway

	cfg      config.AppConfig
	db       database.Database
	embedder domainsearch.Embedder
	logger   *log.Logger
	closed   atomic.Bool
}

// New creates a Client: it opens (and migrates) the database, selects the
// embedding backend and wires every pipeline service.
func New(opts ...Option) (*Client, error) {
	c := newClientConfig()
	for _, opt := range opts {
		opt(c)
	}
	cfg := c.app

	logger := c.logger
	if logger == nil {
		logger = log.NewLogger(cfg)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	if cfg.VecExtPath() != "" {
		database.SetVectorExtension(cfg.VecExtPath())
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, cfg.DBURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.Migrate(ctx, db, logger); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), errClose)
	}

	servers := persistence.NewServerStore(db)
	tools := persistence.NewToolStore(db)
	signals := persistence.NewSignalStore(db)
	scores := persistence.NewScoringStore(db)
	searchStore := persistence.NewSearchStore(db)

	embedder := c.embedder
	if embedder == nil && !c.keywordOnly {
		embedder = buildEmbedder(cfg, logger)
	}

	sources := cfg.Sources()
	resolver := gateway.NewResolver(servers)

	client := &Client{
		cfg:      cfg,
		db:       db,
		embedder: embedder,
		logger:   logger,
	}

	registryClient := registry.NewClient(sources.Registry().BaseURL(),
		newFetcher(logger, sources.Registry()), logger)
	client.Ingest = service.NewIngest(
		registry.NewIngestor(registryClient, servers, logger), scores, logger)

	workers := buildWorkers(sources, servers, signals, c.codeSearchLimit, logger)
	client.Enrich = service.NewEnrichment(
		enrich.NewRunner(logger, workers...), signals, logger)

	backlinks := scoring.NewBacklinkScorer(scores, signals, servers,
		newFetcher(logger, sources.GitHub()), sources.GitHub().Token(), logger).
		WithBaseURL(sources.GitHub().BaseURL())
	client.Scoring = service.NewScoring(backlinks,
		scoring.NewMarketRanker(scores, logger), logger)

	var updater *search.EmbeddingUpdater
	if embedder != nil {
		updater = search.NewEmbeddingUpdater(searchStore, embedder, logger).
			WithBatchSize(cfg.Embedding().BatchSize())
	}
	client.Index = service.NewIndex(
		search.NewIndexer(tools, searchStore, logger), updater, logger)

	client.Extraction = service.NewExtraction(resolver, servers, tools, logger)
	client.Stats = service.NewStatistics(servers, tools, signals, logger)
	client.Retriever = search.NewRetriever(searchStore, embedder, logger)
	client.Gateway = gateway.NewGateway(resolver, tools, logger).
		WithTimeout(cfg.CallTimeout())

	return client, nil
}

// Close releases the database.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	c.logger.Info("wisp client closed")
	return nil
}

// Config returns the resolved application configuration.
func (c *Client) Config() config.AppConfig {
	return c.cfg
}

// Logger returns the client's logger.
func (c *Client) Logger() *log.Logger {
	return c.logger
}

// DB returns the underlying database handle.
func (c *Client) DB() database.Database {
	return c.db
}

// KeywordOnly reports whether the client runs without an embedding
// backend.
func (c *Client) KeywordOnly() bool {
	return c.embedder == nil
}

// WarmEmbedder loads the embedding model by embedding one probe text, so
// the first search request does not pay the model startup cost. A nil
// embedder warms nothing.
func (c *Client) WarmEmbedder(ctx context.Context) error {
	if c.embedder == nil {
		return nil
	}
	if _, err := c.embedder.Embed(ctx, []string{"warmup"}); err != nil {
		return fmt.Errorf("warm embedder: %w", err)
	}
	return nil
}

// buildEmbedder selects the embedding backend from the configuration.
// A hugot provider without model files degrades to keyword-only search
// instead of failing construction: the catalog pipeline and the gateway
// work without embeddings.
func buildEmbedder(cfg config.AppConfig, logger *log.Logger) domainsearch.Embedder {
	emb := cfg.Embedding()
	switch emb.Provider() {
	case config.EmbeddingProviderOpenAI:
		return provider.NewOpenAIEmbedder(provider.OpenAIConfig{
			APIKey:  emb.APIKey(),
			BaseURL: emb.BaseURL(),
			Model:   emb.Model(),
		})
	default:
		modelDir := emb.ModelPath()
		if modelDir == "" {
			modelDir = filepath.Join(cfg.DataDir(), "models")
		}
		hugot := provider.NewHugotEmbedder(modelDir)
		if !hugot.Available() {
			logger.Warn("no embedding model found, search is keyword-only",
				"model_dir", modelDir)
			return nil
		}
		return hugot
	}
}

// buildWorkers wires the enrichment workers against their configured
// endpoints, in the order they run.
func buildWorkers(sources config.Sources, servers persistence.ServerStore, signals persistence.SignalStore, codeSearchLimit int, logger *log.Logger) []enrich.Worker {
	github := enrich.NewGitHub(newFetcher(logger, sources.GitHub()),
		signals, sources.GitHub().Token(), logger).
		WithBaseURL(sources.GitHub().BaseURL()).
		WithPause(sources.GitHub().MinInterval())

	npm := enrich.NewNPMDownloads(newFetcher(logger, sources.NPM()), signals, logger).
		WithBaseURL(sources.NPM().BaseURL()).
		WithPause(sources.NPM().MinInterval())

	pypi := enrich.NewPyPIDownloads(newFetcher(logger, sources.PyPI()), signals, logger).
		WithBaseURL(sources.PyPI().BaseURL()).
		WithPause(sources.PyPI().MinInterval())

	docker := enrich.NewDockerPulls(newFetcher(logger, sources.Docker()), signals, logger).
		WithBaseURL(sources.Docker().BaseURL()).
		WithPause(sources.Docker().MinInterval())

	glama := enrich.NewGlama(newFetcher(logger, sources.Glama()), servers, signals, logger).
		WithBaseURL(sources.Glama().BaseURL()).
		WithPause(sources.Glama().MinInterval())

	dependents := enrich.NewDependents(newFetcher(logger, sources.LibrariesIO()),
		signals, sources.LibrariesIO().Token(), logger).
		WithBaseURL(sources.LibrariesIO().BaseURL()).
		WithPause(sources.LibrariesIO().MinInterval())

	configRefs := enrich.NewConfigRefs(
		newFetcher(logger, sources.CodeSearch(), fetch.WithResetWait()),
		signals, sources.CodeSearch().Token(), logger).
		WithBaseURL(sources.CodeSearch().BaseURL()).
		WithPause(sources.CodeSearch().MinInterval()).
		WithLimit(codeSearchLimit)

	serviceCost := enrich.NewServiceCostAnalyzer(servers, signals, logger)

	return []enrich.Worker{
		github, npm, pypi, docker, glama, dependents, configRefs, serviceCost,
	}
}

// newFetcher builds the retrying HTTP client of one endpoint.
func newFetcher(logger *log.Logger, ep config.Endpoint, opts ...fetch.Option) *fetch.Client {
	base := []fetch.Option{
		fetch.WithHTTPClient(&http.Client{Timeout: ep.Timeout()}),
		fetch.WithMaxRetries(ep.MaxRetries()),
		fetch.WithBaseDelay(ep.InitialDelay()),
		fetch.WithUserAgent("wisp/0.1"),
	}
	return fetch.New(logger, append(base, opts...)...)
}
