package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wisplabs/wisp/infrastructure/gateway"
	"github.com/wisplabs/wisp/infrastructure/search"
	"github.com/wisplabs/wisp/internal/log"
)

// DefaultTokensFile is where available API keys are listed, one per line.
const DefaultTokensFile = ".tokens"

// Handlers implements the gateway's HTTP endpoints.
type Handlers struct {
	retriever  *search.Retriever
	gateway    *gateway.Gateway
	tokensFile string
	logger     *log.Logger
}

// NewHandlers creates the endpoint set.
func NewHandlers(retriever *search.Retriever, gw *gateway.Gateway, logger *log.Logger) *Handlers {
	return &Handlers{
		retriever:  retriever,
		gateway:    gw,
		tokensFile: DefaultTokensFile,
		logger:     logger,
	}
}

// WithTokensFile overrides the tokens file path.
func (h *Handlers) WithTokensFile(path string) *Handlers {
	if path != "" {
		h.tokensFile = path
	}
	return h
}

// Mount registers all routes on the router.
func (h *Handlers) Mount(router chi.Router) {
	router.Get("/health", h.Health)
	router.Get("/keys", h.Keys)
	router.Get("/search", h.Search)
	router.Get("/servers/{name}/tools", h.ServerTools)
	router.Post("/call", h.Call)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Keys handles GET /keys. It lists the names in the local tokens file; a
// missing file means no keys are configured.
func (h *Handlers) Keys(w http.ResponseWriter, r *http.Request) {
	keys := []string{}

	f, err := os.Open(h.tokensFile)
	if err == nil {
		defer func() { _ = f.Close() }()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			keys = append(keys, line)
		}
	} else if !os.IsNotExist(err) {
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"available_keys": keys})
}

// Search handles GET /search?query=&page=&limit=.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		h.writeError(w, r, http.StatusBadRequest, "query is required")
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		h.writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil || limit < 1 || limit > 100 {
		h.writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	resp, err := h.retriever.Retrieve(r.Context(), query, page, limit)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ServerTools handles GET /servers/{name}/tools. Server names contain
// slashes (io.example/files), so the path value is URL-encoded.
func (h *Handlers) ServerTools(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	results, err := h.retriever.ServerTools(r.Context(), name)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	tools := make([]string, len(results))
	for i, result := range results {
		tools[i] = result.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{"server": name, "tools": tools})
}

// callRequest is the POST /call body.
type callRequest struct {
	ServerName string         `json:"server_name"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments"`
}

// Call handles POST /call. The tool's result is passed through; timeouts
// map to 504 and servers without connection info to 404.
func (h *Handlers) Call(w http.ResponseWriter, r *http.Request) {
	var body callRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ServerName == "" || body.ToolName == "" {
		h.writeError(w, r, http.StatusBadRequest, "server_name and tool_name are required")
		return
	}

	result, err := h.gateway.Call(r.Context(), body.ServerName, body.ToolName, body.Arguments)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, gateway.ErrNoConnectionInfo):
		h.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, gateway.ErrCallTimeout):
		h.writeError(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		h.writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request error",
			"status", status, "path", r.URL.Path, "detail", detail)
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
