// Package registry holds the catalog domain: servers as published by the
// upstream registry, their packages, remotes, and environment variables.
package registry

import "time"

// Transport types used by packages and remotes.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// Registry types for packages.
const (
	RegistryNPM  = "npm"
	RegistryPyPI = "pypi"
	RegistryOCI  = "oci"
)

// Server is a registry entry. Identity is the unique name; everything else
// may be overwritten by re-ingest.
type Server struct {
	name             string
	description      string
	version          string
	schemaURL        string
	repositoryURL    string
	repositorySource string
	websiteURL       string
	isLatest         bool
	status           string
	publishedAt      *time.Time
	updatedAt        *time.Time
	rawJSON          string
	extractedAt      time.Time
}

// NewServer creates a Server with the given identity.
func NewServer(name, description, version string) Server {
	return Server{
		name:        name,
		description: description,
		version:     version,
		extractedAt: time.Now().UTC(),
	}
}

// Name returns the unique server name.
func (s Server) Name() string { return s.name }

// Description returns the server description.
func (s Server) Description() string { return s.description }

// Version returns the published version.
func (s Server) Version() string { return s.version }

// SchemaURL returns the JSON schema URL of the registry record.
func (s Server) SchemaURL() string { return s.schemaURL }

// RepositoryURL returns the source repository URL.
func (s Server) RepositoryURL() string { return s.repositoryURL }

// RepositorySource returns the repository host kind (e.g. github).
func (s Server) RepositorySource() string { return s.repositorySource }

// WebsiteURL returns the project website.
func (s Server) WebsiteURL() string { return s.websiteURL }

// IsLatest reports whether this is the latest published version.
func (s Server) IsLatest() bool { return s.isLatest }

// Status returns the registry status (e.g. active, deprecated).
func (s Server) Status() string { return s.status }

// PublishedAt returns the publish timestamp, if known.
func (s Server) PublishedAt() *time.Time { return s.publishedAt }

// UpdatedAt returns the registry update timestamp, if known.
func (s Server) UpdatedAt() *time.Time { return s.updatedAt }

// RawJSON returns the raw registry record.
func (s Server) RawJSON() string { return s.rawJSON }

// ExtractedAt returns when this record was ingested.
func (s Server) ExtractedAt() time.Time { return s.extractedAt }

// ServerOption mutates a Server during construction.
type ServerOption func(*Server)

// WithSchemaURL sets the schema URL.
func WithSchemaURL(u string) ServerOption {
	return func(s *Server) { s.schemaURL = u }
}

// WithRepository sets the repository URL and source.
func WithRepository(url, source string) ServerOption {
	return func(s *Server) {
		s.repositoryURL = url
		s.repositorySource = source
	}
}

// WithWebsiteURL sets the website URL.
func WithWebsiteURL(u string) ServerOption {
	return func(s *Server) { s.websiteURL = u }
}

// WithLatest marks whether this is the latest version.
func WithLatest(latest bool) ServerOption {
	return func(s *Server) { s.isLatest = latest }
}

// WithStatus sets the registry status.
func WithStatus(status string) ServerOption {
	return func(s *Server) { s.status = status }
}

// WithPublishedAt sets the publish timestamp.
func WithPublishedAt(t *time.Time) ServerOption {
	return func(s *Server) { s.publishedAt = t }
}

// WithUpdatedAt sets the registry update timestamp.
func WithUpdatedAt(t *time.Time) ServerOption {
	return func(s *Server) { s.updatedAt = t }
}

// WithRawJSON sets the raw registry record.
func WithRawJSON(raw string) ServerOption {
	return func(s *Server) { s.rawJSON = raw }
}

// WithExtractedAt sets the ingest timestamp.
func WithExtractedAt(t time.Time) ServerOption {
	return func(s *Server) { s.extractedAt = t }
}

// NewServerWithOptions creates a Server applying the given options.
func NewServerWithOptions(name, description, version string, opts ...ServerOption) Server {
	s := NewServer(name, description, version)
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Package is an installable distribution of a server.
type Package struct {
	serverName    string
	registryType  string
	identifier    string
	version       string
	transportType string
	transportURL  string
	runtimeHint   string
	fileSHA256    string
	rawJSON       string
}

// NewPackage creates a Package.
func NewPackage(serverName, registryType, identifier, version, transportType string) Package {
	return Package{
		serverName:    serverName,
		registryType:  registryType,
		identifier:    identifier,
		version:       version,
		transportType: transportType,
	}
}

// ServerName returns the owning server name.
func (p Package) ServerName() string { return p.serverName }

// RegistryType returns the package registry (npm, pypi, oci, ...).
func (p Package) RegistryType() string { return p.registryType }

// Identifier returns the package identifier within its registry.
func (p Package) Identifier() string { return p.identifier }

// Version returns the package version.
func (p Package) Version() string { return p.version }

// TransportType returns how the package is spoken to once launched.
func (p Package) TransportType() string { return p.transportType }

// TransportURL returns the transport URL, if any.
func (p Package) TransportURL() string { return p.transportURL }

// RuntimeHint returns the launcher override, if any.
func (p Package) RuntimeHint() string { return p.runtimeHint }

// FileSHA256 returns the distribution checksum, if published.
func (p Package) FileSHA256() string { return p.fileSHA256 }

// RawJSON returns the raw package record.
func (p Package) RawJSON() string { return p.rawJSON }

// WithTransportURL returns a copy with the transport URL set.
func (p Package) WithTransportURL(u string) Package {
	p.transportURL = u
	return p
}

// WithRuntimeHint returns a copy with the runtime hint set.
func (p Package) WithRuntimeHint(hint string) Package {
	p.runtimeHint = hint
	return p
}

// WithFileSHA256 returns a copy with the checksum set.
func (p Package) WithFileSHA256(sum string) Package {
	p.fileSHA256 = sum
	return p
}

// WithRawJSON returns a copy with the raw record set.
func (p Package) WithRawJSON(raw string) Package {
	p.rawJSON = raw
	return p
}

// Remote is an already-hosted HTTP endpoint for a server. Header values may
// contain placeholders resolved from the environment at invocation time.
type Remote struct {
	serverName    string
	transportType string
	url           string
	headers       map[string]string
}

// NewRemote creates a Remote.
func NewRemote(serverName, transportType, url string, headers map[string]string) Remote {
	var copied map[string]string
	if headers != nil {
		copied = make(map[string]string, len(headers))
		for k, v := range headers {
			copied[k] = v
		}
	}
	return Remote{
		serverName:    serverName,
		transportType: transportType,
		url:           url,
		headers:       copied,
	}
}

// ServerName returns the owning server name.
func (r Remote) ServerName() string { return r.serverName }

// TransportType returns the remote transport kind.
func (r Remote) TransportType() string { return r.transportType }

// URL returns the endpoint URL.
func (r Remote) URL() string { return r.url }

// Headers returns a copy of the header map.
func (r Remote) Headers() map[string]string {
	if r.headers == nil {
		return nil
	}
	copied := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		copied[k] = v
	}
	return copied
}

// LocalSource describes a server run from a working copy on disk.
type LocalSource struct {
	serverName string
	command    string
	args       []string
	workingDir string
	env        map[string]string
}

// NewLocalSource creates a LocalSource.
func NewLocalSource(serverName, command string, args []string, workingDir string, env map[string]string) LocalSource {
	copiedArgs := make([]string, len(args))
	copy(copiedArgs, args)
	var copiedEnv map[string]string
	if env != nil {
		copiedEnv = make(map[string]string, len(env))
		for k, v := range env {
			copiedEnv[k] = v
		}
	}
	return LocalSource{
		serverName: serverName,
		command:    command,
		args:       copiedArgs,
		workingDir: workingDir,
		env:        copiedEnv,
	}
}

// ServerName returns the owning server name.
func (l LocalSource) ServerName() string { return l.serverName }

// Command returns the executable to run.
func (l LocalSource) Command() string { return l.command }

// Args returns a copy of the argument list.
func (l LocalSource) Args() []string {
	copied := make([]string, len(l.args))
	copy(copied, l.args)
	return copied
}

// WorkingDir returns the working directory.
func (l LocalSource) WorkingDir() string { return l.workingDir }

// Env returns a copy of the environment overrides.
func (l LocalSource) Env() map[string]string {
	if l.env == nil {
		return nil
	}
	copied := make(map[string]string, len(l.env))
	for k, v := range l.env {
		copied[k] = v
	}
	return copied
}

// EnvVar is a declared environment variable of a server package.
// is_secret=true marks auth-gated servers.
type EnvVar struct {
	serverName   string
	varName      string
	description  string
	isRequired   bool
	isSecret     bool
	format       string
	defaultValue string
	choices      []string
}

// NewEnvVar creates an EnvVar.
func NewEnvVar(serverName, varName, description string, required, secret bool) EnvVar {
	return EnvVar{
		serverName:  serverName,
		varName:     varName,
		description: description,
		isRequired:  required,
		isSecret:    secret,
	}
}

// ServerName returns the owning server name.
func (v EnvVar) ServerName() string { return v.serverName }

// VarName returns the variable name.
func (v EnvVar) VarName() string { return v.varName }

// Description returns the variable description.
func (v EnvVar) Description() string { return v.description }

// IsRequired reports whether the variable is required.
func (v EnvVar) IsRequired() bool { return v.isRequired }

// IsSecret reports whether the variable is a credential.
func (v EnvVar) IsSecret() bool { return v.isSecret }

// Format returns the declared value format, if any.
func (v EnvVar) Format() string { return v.format }

// DefaultValue returns the declared default, if any.
func (v EnvVar) DefaultValue() string { return v.defaultValue }

// Choices returns the declared value choices, if any.
func (v EnvVar) Choices() []string {
	copied := make([]string, len(v.choices))
	copy(copied, v.choices)
	return copied
}

// WithFormat returns a copy with the format set.
func (v EnvVar) WithFormat(format string) EnvVar {
	v.format = format
	return v
}

// WithDefaultValue returns a copy with the default set.
func (v EnvVar) WithDefaultValue(value string) EnvVar {
	v.defaultValue = value
	return v
}

// WithChoices returns a copy with the choices set.
func (v EnvVar) WithChoices(choices []string) EnvVar {
	v.choices = make([]string, len(choices))
	copy(v.choices, choices)
	return v
}

// Icon is a registry-published server icon.
type Icon struct {
	serverName string
	src        string
	mimeType   string
	theme      string
	sizes      []string
}

// NewIcon creates an Icon.
func NewIcon(serverName, src, mimeType, theme string, sizes []string) Icon {
	copied := make([]string, len(sizes))
	copy(copied, sizes)
	return Icon{
		serverName: serverName,
		src:        src,
		mimeType:   mimeType,
		theme:      theme,
		sizes:      copied,
	}
}

// ServerName returns the owning server name.
func (i Icon) ServerName() string { return i.serverName }

// Src returns the icon URL.
func (i Icon) Src() string { return i.src }

// MimeType returns the icon MIME type.
func (i Icon) MimeType() string { return i.mimeType }

// Theme returns the icon theme, if any.
func (i Icon) Theme() string { return i.theme }

// Sizes returns the declared sizes.
func (i Icon) Sizes() []string {
	copied := make([]string, len(i.sizes))
	copy(copied, i.sizes)
	return copied
}
