package registry

import "time"

// Tool is a callable operation extracted from a live server.
type Tool struct {
	serverName   string
	name         string
	title        string
	description  string
	inputSchema  string
	outputSchema string
	annotations  string
	extractedAt  time.Time
}

// NewTool creates a Tool.
func NewTool(serverName, name, title, description string) Tool {
	return Tool{
		serverName:  serverName,
		name:        name,
		title:       title,
		description: description,
		extractedAt: time.Now().UTC(),
	}
}

// ServerName returns the owning server name.
func (t Tool) ServerName() string { return t.serverName }

// Name returns the tool name.
func (t Tool) Name() string { return t.name }

// Title returns the human-readable title, if any.
func (t Tool) Title() string { return t.title }

// Description returns the tool description.
func (t Tool) Description() string { return t.description }

// InputSchema returns the raw JSON input schema.
func (t Tool) InputSchema() string { return t.inputSchema }

// OutputSchema returns the raw JSON output schema, if any.
func (t Tool) OutputSchema() string { return t.outputSchema }

// Annotations returns the raw JSON annotations, if any.
func (t Tool) Annotations() string { return t.annotations }

// ExtractedAt returns when the tool was extracted.
func (t Tool) ExtractedAt() time.Time { return t.extractedAt }

// WithInputSchema returns a copy with the input schema set.
func (t Tool) WithInputSchema(schema string) Tool {
	t.inputSchema = schema
	return t
}

// WithOutputSchema returns a copy with the output schema set.
func (t Tool) WithOutputSchema(schema string) Tool {
	t.outputSchema = schema
	return t
}

// WithAnnotations returns a copy with the annotations set.
func (t Tool) WithAnnotations(annotations string) Tool {
	t.annotations = annotations
	return t
}

// WithExtractedAt returns a copy with the extraction timestamp set.
func (t Tool) WithExtractedAt(at time.Time) Tool {
	t.extractedAt = at
	return t
}

// ToolParameter is a single input parameter flattened out of a tool's
// input schema.
type ToolParameter struct {
	serverName  string
	toolName    string
	name        string
	paramType   string
	description string
	required    bool
	defaultJSON string
	enumJSON    string
}

// NewToolParameter creates a ToolParameter.
func NewToolParameter(serverName, toolName, name, paramType, description string, required bool) ToolParameter {
	return ToolParameter{
		serverName:  serverName,
		toolName:    toolName,
		name:        name,
		paramType:   paramType,
		description: description,
		required:    required,
	}
}

// ServerName returns the owning server name.
func (p ToolParameter) ServerName() string { return p.serverName }

// ToolName returns the owning tool name.
func (p ToolParameter) ToolName() string { return p.toolName }

// Name returns the parameter name.
func (p ToolParameter) Name() string { return p.name }

// Type returns the JSON schema type.
func (p ToolParameter) Type() string { return p.paramType }

// Description returns the parameter description.
func (p ToolParameter) Description() string { return p.description }

// Required reports whether the parameter is required.
func (p ToolParameter) Required() bool { return p.required }

// DefaultJSON returns the default value as raw JSON, if any.
func (p ToolParameter) DefaultJSON() string { return p.defaultJSON }

// EnumJSON returns the enum values as raw JSON, if any.
func (p ToolParameter) EnumJSON() string { return p.enumJSON }

// WithDefaultJSON returns a copy with the default set.
func (p ToolParameter) WithDefaultJSON(raw string) ToolParameter {
	p.defaultJSON = raw
	return p
}

// WithEnumJSON returns a copy with the enum values set.
func (p ToolParameter) WithEnumJSON(raw string) ToolParameter {
	p.enumJSON = raw
	return p
}

// Resource is a readable resource advertised by a live server.
type Resource struct {
	serverName  string
	uri         string
	name        string
	description string
	mimeType    string
	extractedAt time.Time
}

// NewResource creates a Resource.
func NewResource(serverName, uri, name, description, mimeType string) Resource {
	return Resource{
		serverName:  serverName,
		uri:         uri,
		name:        name,
		description: description,
		mimeType:    mimeType,
		extractedAt: time.Now().UTC(),
	}
}

// ServerName returns the owning server name.
func (r Resource) ServerName() string { return r.serverName }

// URI returns the resource URI.
func (r Resource) URI() string { return r.uri }

// Name returns the resource name.
func (r Resource) Name() string { return r.name }

// Description returns the resource description.
func (r Resource) Description() string { return r.description }

// MimeType returns the resource MIME type, if declared.
func (r Resource) MimeType() string { return r.mimeType }

// ExtractedAt returns when the resource was extracted.
func (r Resource) ExtractedAt() time.Time { return r.extractedAt }

// Prompt is a reusable prompt template advertised by a live server.
type Prompt struct {
	serverName    string
	name          string
	title         string
	description   string
	argumentsJSON string
	extractedAt   time.Time
}

// NewPrompt creates a Prompt.
func NewPrompt(serverName, name, title, description, argumentsJSON string) Prompt {
	return Prompt{
		serverName:    serverName,
		name:          name,
		title:         title,
		description:   description,
		argumentsJSON: argumentsJSON,
		extractedAt:   time.Now().UTC(),
	}
}

// ServerName returns the owning server name.
func (p Prompt) ServerName() string { return p.serverName }

// Name returns the prompt name.
func (p Prompt) Name() string { return p.name }

// Title returns the human-readable title, if any.
func (p Prompt) Title() string { return p.title }

// Description returns the prompt description.
func (p Prompt) Description() string { return p.description }

// ArgumentsJSON returns the prompt arguments as raw JSON.
func (p Prompt) ArgumentsJSON() string { return p.argumentsJSON }

// ExtractedAt returns when the prompt was extracted.
func (p Prompt) ExtractedAt() time.Time { return p.extractedAt }
