// Package provider implements the embedding backends behind the search
// index: an OpenAI-compatible HTTP provider and a local ONNX model via
// hugot.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// errEmbeddingCountMismatch indicates the API returned fewer embedding
// vectors than requested. Retryable: transient upstream issues (e.g.
// rate-limiting behind a 200 status) can produce partial responses.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// errUpstreamProviderFailure indicates the API returned HTTP 200 but the
// response body contained an error instead of embedding data. Routing
// providers like OpenRouter do this when every upstream is down; retrying
// is futile.
var errUpstreamProviderFailure = errors.New("upstream provider failure")

// OpenAIConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	CacheDir      string
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// OpenAIEmbedder generates embeddings through any OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewOpenAIEmbedder creates an embedder from configuration. A CacheDir
// enables on-disk response caching, so re-indexing runs do not re-embed
// unchanged documents through the API.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	httpClient := &http.Client{}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	if cfg.CacheDir != "" {
		httpClient.Transport = NewCachingTransport(cfg.CacheDir, nil)
	}
	config.HTTPClient = httpClient

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	initialDelay := cfg.InitialDelay
	if initialDelay == 0 {
		initialDelay = 2 * time.Second
	}
	backoffFactor := cfg.BackoffFactor
	if backoffFactor == 0 {
		backoffFactor = 2.0
	}

	return &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(config),
		model:         model,
		maxRetries:    maxRetries,
		initialDelay:  initialDelay,
		backoffFactor: backoffFactor,
	}
}

// Embed generates one embedding per text in a single API call.
func (p *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	var err error
	err = p.withRetry(ctx, func() error {
		resp, err = p.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		// Routing providers can return HTTP 200 with an error body that the
		// go-openai library silently parses as an empty response. Zero data
		// with zero usage and no model means the upstream is down.
		if len(resp.Data) == 0 && string(resp.Model) == "" && resp.Usage.TotalTokens == 0 {
			return fmt.Errorf("%w: 200 response with no embedding data, no model and zero usage", errUpstreamProviderFailure)
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			embeddings[i][j] = float64(v)
		}
	}
	return embeddings, nil
}

// withRetry executes the function with exponential backoff.
func (p *OpenAIEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := p.initialDelay
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * p.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return true
	}

	return false
}
