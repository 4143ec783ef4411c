package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer mimics an OpenAI-compatible embeddings endpoint. The
// first failures requests answer with empty data, the rest with one
// 3-dimensional vector per input text.
func embeddingServer(t *testing.T, counter *atomic.Int64, failures int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)

		var body struct {
			Input any    `json:"input"`
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var texts []string
		switch v := body.Input.(type) {
		case string:
			texts = []string{v}
		case []any:
			for _, item := range v {
				texts = append(texts, item.(string))
			}
		}

		var data []map[string]any
		if n > failures {
			data = make([]map[string]any, len(texts))
			for i := range texts {
				data[i] = map[string]any{
					"object":    "embedding",
					"index":     i,
					"embedding": []float64{0.1, 0.2, 0.3},
				}
			}
		}

		resp := map[string]any{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage":  map[string]int{"prompt_tokens": len(texts) * 4, "total_tokens": len(texts) * 4},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	var counter atomic.Int64
	srv := embeddingServer(t, &counter, 0)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{APIKey: "key", BaseURL: srv.URL})

	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, counter.Load())
}

func TestOpenAIEmbedderBatch(t *testing.T) {
	var counter atomic.Int64
	srv := embeddingServer(t, &counter, 0)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{APIKey: "key", BaseURL: srv.URL})

	texts := make([]string, 16)
	for i := range texts {
		texts[i] = "text"
	}
	vectors, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 16)
	assert.InDelta(t, 0.1, vectors[0][0], 1e-6)
	// The whole batch goes out as one request.
	assert.Equal(t, int64(1), counter.Load())
}

func TestOpenAIEmbedderRetriesEmptyResponse(t *testing.T) {
	var counter atomic.Int64
	srv := embeddingServer(t, &counter, 2)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:       "key",
		BaseURL:      srv.URL,
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
	})

	vectors, err := e.Embed(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, int64(3), counter.Load())
}

func TestOpenAIEmbedderGivesUpOnPersistentMismatch(t *testing.T) {
	var counter atomic.Int64
	srv := embeddingServer(t, &counter, 999)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:       "key",
		BaseURL:      srv.URL,
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
	})

	_, err := e.Embed(context.Background(), []string{"hello", "world"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errEmbeddingCountMismatch)
}

func TestOpenAIEmbedderCancelledContext(t *testing.T) {
	var counter atomic.Int64
	srv := embeddingServer(t, &counter, 0)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{APIKey: "key", BaseURL: srv.URL, MaxRetries: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, []string{"hello"})
	require.Error(t, err)
}

func TestOpenAIEmbedderCachesResponses(t *testing.T) {
	var counter atomic.Int64
	srv := embeddingServer(t, &counter, 0)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:   "key",
		BaseURL:  srv.URL,
		CacheDir: t.TempDir(),
	})

	for i := 0; i < 2; i++ {
		vectors, err := e.Embed(context.Background(), []string{"hello"})
		require.NoError(t, err)
		require.Len(t, vectors, 1)
	}
	// The second identical request is a disk cache hit.
	assert.Equal(t, int64(1), counter.Load())
}
