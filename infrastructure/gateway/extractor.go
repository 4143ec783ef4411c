package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/signal"
	"github.com/wisplabs/wisp/infrastructure/persistence"
	"github.com/wisplabs/wisp/internal/database"
	"github.com/wisplabs/wisp/internal/log"
)

// DefaultExtractTimeout bounds one server's extraction attempt.
const DefaultExtractTimeout = 60 * time.Second

// Candidate is one server the extractor can try to connect to.
type Candidate struct {
	ServerName   string
	Info         ConnectionInfo
	RequiresAuth bool
}

// Stats summarizes one extraction run.
type Stats struct {
	Attempted int
	Succeeded int
	Failed    int
	Tools     int
	Resources int
	Prompts   int
}

// Extractor connects to registered servers and persists the tools,
// resources and prompts they advertise.
type Extractor struct {
	resolver   Resolver
	servers    persistence.ServerStore
	tools      persistence.ToolStore
	timeout    time.Duration
	limit      int
	remoteOnly bool
	localOnly  bool
	skipAuth   bool
	query      string
	logger     *log.Logger
}

// NewExtractor creates an Extractor with the default per-server timeout.
func NewExtractor(resolver Resolver, servers persistence.ServerStore, tools persistence.ToolStore, logger *log.Logger) *Extractor {
	return &Extractor{
		resolver: resolver,
		servers:  servers,
		tools:    tools,
		timeout:  DefaultExtractTimeout,
		logger:   logger,
	}
}

// WithTimeout overrides the per-server timeout.
func (e *Extractor) WithTimeout(d time.Duration) *Extractor {
	if d > 0 {
		e.timeout = d
	}
	return e
}

// WithLimit caps how many servers one run attempts.
func (e *Extractor) WithLimit(n int) *Extractor {
	e.limit = n
	return e
}

// WithRemoteOnly keeps only servers reachable over a remote URL.
func (e *Extractor) WithRemoteOnly() *Extractor {
	e.remoteOnly = true
	return e
}

// WithLocalOnly keeps only servers launched as local processes.
func (e *Extractor) WithLocalOnly() *Extractor {
	e.localOnly = true
	return e
}

// WithSkipAuth drops servers whose declared environment variables include
// a secret, since those connections fail without credentials.
func (e *Extractor) WithSkipAuth() *Extractor {
	e.skipAuth = true
	return e
}

// WithQuery keeps only servers whose name contains the given substring,
// case-insensitively.
func (e *Extractor) WithQuery(q string) *Extractor {
	e.query = strings.ToLower(q)
	return e
}

// Connectable returns the servers this run would attempt: extraction
// candidates that resolve to some connection route, after the configured
// filters. Servers without connection info are skipped silently.
func (e *Extractor) Connectable(ctx context.Context) ([]Candidate, error) {
	names, err := e.tools.ExtractionCandidates(ctx)
	if err != nil {
		return nil, err
	}
	secrets, err := e.servers.SecretVars(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, name := range names {
		if e.query != "" && !strings.Contains(strings.ToLower(name), e.query) {
			continue
		}
		info, err := e.resolver.Resolve(ctx, name)
		if errors.Is(err, ErrNoConnectionInfo) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if e.remoteOnly && info.Method != signal.MethodRemote {
			continue
		}
		if e.localOnly && info.Method == signal.MethodRemote {
			continue
		}
		requiresAuth := len(secrets[name]) > 0
		if e.skipAuth && requiresAuth {
			continue
		}
		candidates = append(candidates, Candidate{ServerName: name, Info: info, RequiresAuth: requiresAuth})
		if e.limit > 0 && len(candidates) == e.limit {
			break
		}
	}
	return candidates, nil
}

// Run extracts every connectable server in turn. Per-server failures are
// recorded and do not stop the run; only listing or storage errors do.
func (e *Extractor) Run(ctx context.Context) (Stats, error) {
	candidates, err := e.Connectable(ctx)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Attempted++

		counts, extractErr := e.extractOne(ctx, candidate)
		if logErr := e.recordAttempt(ctx, candidate, counts, extractErr); logErr != nil {
			return stats, logErr
		}
		if extractErr != nil {
			stats.Failed++
			e.logger.WarnContext(ctx, "extraction failed",
				"server", candidate.ServerName, "method", candidate.Info.Method, "error", extractErr)
			continue
		}
		stats.Succeeded++
		stats.Tools += counts.Tools
		stats.Resources += counts.Resources
		stats.Prompts += counts.Prompts
		e.logger.InfoContext(ctx, "extraction succeeded",
			"server", candidate.ServerName, "method", candidate.Info.Method,
			"tools", counts.Tools, "resources", counts.Resources, "prompts", counts.Prompts)
	}
	return stats, nil
}

// extractOne connects to one server, lists its capabilities and persists
// them. A server that answers but advertises nothing counts as a failure,
// since an empty extraction carries no signal.
func (e *Extractor) extractOne(ctx context.Context, candidate Candidate) (signal.ExtractionCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	session, err := Open(ctx, candidate.Info)
	if err != nil {
		return signal.ExtractionCounts{}, e.classifyTimeout(ctx, err)
	}
	defer func() { _ = session.Close() }()

	tools, err := session.Tools(ctx)
	if err != nil {
		return signal.ExtractionCounts{}, e.classifyTimeout(ctx, err)
	}
	// Many servers advertise no resources or prompts and some reject the
	// list calls outright, so those errors are swallowed.
	resources, _ := session.Resources(ctx)
	prompts, _ := session.Prompts(ctx)

	counts := signal.ExtractionCounts{Tools: len(tools), Resources: len(resources), Prompts: len(prompts)}
	if counts.Tools+counts.Resources+counts.Prompts == 0 {
		return counts, errors.New("no data returned")
	}

	result := persistence.ExtractionResult{ServerName: candidate.ServerName}
	for _, t := range tools {
		tool, params := convertTool(candidate.ServerName, t)
		result.Tools = append(result.Tools, tool)
		result.Parameters = append(result.Parameters, params...)
	}
	for _, r := range resources {
		result.Resources = append(result.Resources,
			registry.NewResource(candidate.ServerName, r.URI, r.Name, r.Description, r.MIMEType))
	}
	for _, p := range prompts {
		result.Prompts = append(result.Prompts, convertPrompt(candidate.ServerName, p))
	}
	if err := e.tools.SaveExtraction(ctx, result); err != nil {
		return counts, err
	}
	return counts, nil
}

// recordAttempt upserts the extraction status and appends the connection
// log row for one attempt, success or failure.
func (e *Extractor) recordAttempt(ctx context.Context, candidate Candidate, counts signal.ExtractionCounts, extractErr error) error {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()

	status, err := e.tools.ExtractionStatus(ctx, candidate.ServerName)
	if errors.Is(err, database.ErrNotFound) {
		status = signal.NewExtractionStatus(candidate.ServerName)
	} else if err != nil {
		return err
	}

	if extractErr == nil {
		status = status.MarkSuccess(counts, candidate.Info.Method, now)
	} else {
		status = status.MarkFailure(signal.ClassifyMessage(extractErr.Error()), candidate.Info.Method, now)
	}
	if err := e.tools.SaveExtractionStatus(ctx, status); err != nil {
		return err
	}

	return e.tools.LogConnection(ctx, persistence.ConnectionAttempt{
		ServerName:     candidate.ServerName,
		ConnectionType: candidate.Info.Method,
		URLOrCommand:   candidate.Info.Target(),
		Success:        extractErr == nil,
		ErrorMessage:   errString(extractErr),
		Counts:         counts,
	})
}

// classifyTimeout rewrites deadline errors so the failure classifier files
// them as timeouts rather than generic context errors.
func (e *Extractor) classifyTimeout(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("connection timed out after %s", e.timeout)
	}
	return err
}

// convertTool maps one advertised tool to the registry model, flattening
// its input schema into parameter rows.
func convertTool(serverName string, t mcp.Tool) (registry.Tool, []registry.ToolParameter) {
	tool := registry.NewTool(serverName, t.Name, t.Annotations.Title, t.Description)
	if schema, err := json.Marshal(t.InputSchema); err == nil {
		tool = tool.WithInputSchema(string(schema))
	}
	if annotations, err := json.Marshal(t.Annotations); err == nil {
		tool = tool.WithAnnotations(string(annotations))
	}

	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, name := range t.InputSchema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(t.InputSchema.Properties))
	for name := range t.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]registry.ToolParameter, 0, len(names))
	for _, name := range names {
		prop, ok := t.InputSchema.Properties[name].(map[string]any)
		if !ok {
			prop = map[string]any{}
		}
		param := registry.NewToolParameter(serverName, t.Name, name,
			stringProp(prop, "type"), stringProp(prop, "description"), required[name])
		if raw, ok := jsonProp(prop, "default"); ok {
			param = param.WithDefaultJSON(raw)
		}
		if raw, ok := jsonProp(prop, "enum"); ok {
			param = param.WithEnumJSON(raw)
		}
		params = append(params, param)
	}
	return tool, params
}

func convertPrompt(serverName string, p mcp.Prompt) registry.Prompt {
	args := ""
	if len(p.Arguments) > 0 {
		if raw, err := json.Marshal(p.Arguments); err == nil {
			args = string(raw)
		}
	}
	return registry.NewPrompt(serverName, p.Name, "", p.Description, args)
}

func stringProp(prop map[string]any, key string) string {
	s, _ := prop[key].(string)
	return s
}

func jsonProp(prop map[string]any, key string) (string, bool) {
	value, ok := prop[key]
	if !ok || value == nil {
		return "", false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", false
	}
	return string(raw), true
}
