package search

// ServerRef identifies the server a result belongs to.
type ServerRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Result is one hydrated search result returned to clients.
type Result struct {
	ToolID       int64          `json:"tool_id"`
	Name         string         `json:"name"`
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema,omitempty"`
	RequiresAuth bool           `json:"requires_auth"`
	Server       ServerRef      `json:"server"`
	Relevance    float64        `json:"relevance"`
	Quality      float64        `json:"quality"`
	Score        float64        `json:"score"`
}

// Response is the paged search response envelope.
type Response struct {
	Query           string   `json:"query"`
	Page            int      `json:"page"`
	Limit           int      `json:"limit"`
	TotalCandidates int      `json:"total_candidates"`
	Results         []Result `json:"results"`
}
