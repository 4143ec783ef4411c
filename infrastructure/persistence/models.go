// Package persistence provides sqlite storage for the catalog, signal and
// ranking tables.
package persistence

import "time"

// ServerModel is a registry server record.
type ServerModel struct {
	ID               int64      `gorm:"primaryKey;autoIncrement"`
	Name             string     `gorm:"column:name;uniqueIndex;size:512;not null"`
	Description      string     `gorm:"column:description;type:text"`
	Version          string     `gorm:"column:version;size:255"`
	SchemaURL        string     `gorm:"column:schema_url;size:1024"`
	RepositoryURL    string     `gorm:"column:repository_url;size:1024"`
	RepositorySource string     `gorm:"column:repository_source;size:255"`
	WebsiteURL       string     `gorm:"column:website_url;size:1024"`
	IsLatest         bool       `gorm:"column:is_latest"`
	Status           string     `gorm:"column:status;index;size:64"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	UpdatedAt        *time.Time `gorm:"column:updated_at;index"`
	RawJSON          string     `gorm:"column:raw_json;type:text"`
	ExtractedAt      time.Time  `gorm:"column:extracted_at"`
}

// TableName returns the table name.
func (ServerModel) TableName() string { return "servers" }

// PackageModel is an installable distribution of a server.
type PackageModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	ServerName    string `gorm:"column:server_name;index;size:512;not null"`
	RegistryType  string `gorm:"column:registry_type;index;size:64"`
	Identifier    string `gorm:"column:identifier;size:512"`
	Version       string `gorm:"column:version;size:255"`
	TransportType string `gorm:"column:transport_type;size:64"`
	TransportURL  string `gorm:"column:transport_url;size:1024"`
	RuntimeHint   string `gorm:"column:runtime_hint;size:255"`
	FileSHA256    string `gorm:"column:file_sha256;size:128"`
	RawJSON       string `gorm:"column:raw_json;type:text"`
}

// TableName returns the table name.
func (PackageModel) TableName() string { return "server_packages" }

// RemoteModel is a hosted endpoint of a server.
type RemoteModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	ServerName    string `gorm:"column:server_name;index;size:512;not null"`
	TransportType string `gorm:"column:transport_type;size:64"`
	URL           string `gorm:"column:url;size:1024"`
	HeadersJSON   string `gorm:"column:headers_json;type:text"`
}

// TableName returns the table name.
func (RemoteModel) TableName() string { return "server_remotes" }

// LocalSourceModel is a locally-run server configuration.
type LocalSourceModel struct {
	ServerName string `gorm:"column:server_name;primaryKey;size:512"`
	Command    string `gorm:"column:command;size:512;not null"`
	ArgsJSON   string `gorm:"column:args_json;type:text"`
	WorkingDir string `gorm:"column:working_dir;size:1024"`
	EnvJSON    string `gorm:"column:env_json;type:text"`
}

// TableName returns the table name.
func (LocalSourceModel) TableName() string { return "server_local_sources" }

// EnvVarModel is a declared environment variable of a server.
type EnvVarModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ServerName   string `gorm:"column:server_name;index;size:512;not null"`
	VarName      string `gorm:"column:var_name;size:255;not null"`
	Description  string `gorm:"column:description;type:text"`
	IsRequired   bool   `gorm:"column:is_required;default:false"`
	IsSecret     bool   `gorm:"column:is_secret;index;default:false"`
	Format       string `gorm:"column:format;size:64"`
	DefaultValue string `gorm:"column:default_value;type:text"`
	Choices      string `gorm:"column:choices;type:text"`
}

// TableName returns the table name.
func (EnvVarModel) TableName() string { return "environment_variables" }

// IconModel is a registry-published server icon.
type IconModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	ServerName string `gorm:"column:server_name;index;size:512;not null"`
	Src        string `gorm:"column:src;size:1024"`
	MimeType   string `gorm:"column:mime_type;size:128"`
	Theme      string `gorm:"column:theme;size:64"`
	Sizes      string `gorm:"column:sizes;size:255"`
}

// TableName returns the table name.
func (IconModel) TableName() string { return "server_icons" }

// ToolModel is a tool extracted from a live server.
type ToolModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	ServerName   string    `gorm:"column:server_name;index:idx_tools_server;uniqueIndex:uq_tools_server_tool;size:512;not null"`
	ToolName     string    `gorm:"column:tool_name;index:idx_tools_name;uniqueIndex:uq_tools_server_tool;size:255;not null"`
	Title        string    `gorm:"column:title;size:512"`
	Description  string    `gorm:"column:description;type:text"`
	InputSchema  string    `gorm:"column:input_schema;type:text"`
	OutputSchema string    `gorm:"column:output_schema;type:text"`
	ExtractedAt  time.Time `gorm:"column:extracted_at"`
}

// TableName returns the table name.
func (ToolModel) TableName() string { return "tools" }

// ToolParameterModel is a flattened input parameter of a tool.
type ToolParameterModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ServerName   string `gorm:"column:server_name;uniqueIndex:uq_tool_params;size:512;not null"`
	ToolName     string `gorm:"column:tool_name;uniqueIndex:uq_tool_params;size:255;not null"`
	ParamName    string `gorm:"column:param_name;uniqueIndex:uq_tool_params;size:255;not null"`
	ParamType    string `gorm:"column:param_type;size:64"`
	Description  string `gorm:"column:description;type:text"`
	IsRequired   bool   `gorm:"column:is_required;default:false"`
	DefaultValue string `gorm:"column:default_value;type:text"`
	EnumValues   string `gorm:"column:enum_values;type:text"`
}

// TableName returns the table name.
func (ToolParameterModel) TableName() string { return "tool_parameters" }

// ResourceModel is a resource extracted from a live server.
type ResourceModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	ServerName  string    `gorm:"column:server_name;index;uniqueIndex:uq_resources_server_uri;size:512;not null"`
	URI         string    `gorm:"column:uri;uniqueIndex:uq_resources_server_uri;size:1024;not null"`
	Name        string    `gorm:"column:name;size:512"`
	Description string    `gorm:"column:description;type:text"`
	MimeType    string    `gorm:"column:mime_type;size:128"`
	ExtractedAt time.Time `gorm:"column:extracted_at"`
}

// TableName returns the table name.
func (ResourceModel) TableName() string { return "resources" }

// PromptModel is a prompt template extracted from a live server.
type PromptModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	ServerName    string    `gorm:"column:server_name;index;uniqueIndex:uq_prompts_server_name;size:512;not null"`
	PromptName    string    `gorm:"column:prompt_name;uniqueIndex:uq_prompts_server_name;size:255;not null"`
	Title         string    `gorm:"column:title;size:512"`
	Description   string    `gorm:"column:description;type:text"`
	ArgumentsJSON string    `gorm:"column:arguments_json;type:text"`
	ExtractedAt   time.Time `gorm:"column:extracted_at"`
}

// TableName returns the table name.
func (PromptModel) TableName() string { return "prompts" }

// ConnectionLogModel is one attempted live connection to a server.
type ConnectionLogModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ServerName     string    `gorm:"column:server_name;index;size:512;not null"`
	ConnectionType string    `gorm:"column:connection_type;size:64"`
	URLOrCommand   string    `gorm:"column:url_or_command;size:1024"`
	Success        bool      `gorm:"column:success"`
	ErrorMessage   string    `gorm:"column:error_message;type:text"`
	ToolsCount     int       `gorm:"column:tools_count"`
	ResourcesCount int       `gorm:"column:resources_count"`
	PromptsCount   int       `gorm:"column:prompts_count"`
	AttemptedAt    time.Time `gorm:"column:attempted_at"`
}

// TableName returns the table name.
func (ConnectionLogModel) TableName() string { return "connection_log" }

// ExtractionStatusModel tracks the extraction outcome per server.
type ExtractionStatusModel struct {
	ServerName       string     `gorm:"column:server_name;primaryKey;size:512"`
	Status           string     `gorm:"column:status;size:64;not null"`
	FailureCategory  string     `gorm:"column:failure_category;size:128"`
	FailureReason    string     `gorm:"column:failure_reason;type:text"`
	ToolsCount       int        `gorm:"column:tools_count;default:0"`
	ResourcesCount   int        `gorm:"column:resources_count;default:0"`
	PromptsCount     int        `gorm:"column:prompts_count;default:0"`
	ConnectionMethod string     `gorm:"column:connection_method;size:64"`
	LastAttemptedAt  *time.Time `gorm:"column:last_attempted_at"`
	LastSuccessfulAt *time.Time `gorm:"column:last_successful_at"`
	RetryCount       int        `gorm:"column:retry_count;default:0"`
}

// TableName returns the table name.
func (ExtractionStatusModel) TableName() string { return "tool_extraction_status" }

// EnrichmentStatusModel tracks the outcome per (server, enrichment type).
type EnrichmentStatusModel struct {
	ServerName      string    `gorm:"column:server_name;primaryKey;size:512"`
	EnrichmentType  string    `gorm:"column:enrichment_type;primaryKey;size:64"`
	Status          string    `gorm:"column:status;size:64;not null"`
	FailureReason   string    `gorm:"column:failure_reason;size:128"`
	LastAttemptedAt time.Time `gorm:"column:last_attempted_at"`
	RetryCount      int       `gorm:"column:retry_count;default:0"`
}

// TableName returns the table name.
func (EnrichmentStatusModel) TableName() string { return "enrichment_status" }

// GitHubSignalModel is repository metadata fetched from GitHub.
type GitHubSignalModel struct {
	ID            int64      `gorm:"primaryKey;autoIncrement"`
	ServerName    string     `gorm:"column:server_name;uniqueIndex;size:512;not null"`
	RepoOwner     string     `gorm:"column:repo_owner;size:255"`
	RepoName      string     `gorm:"column:repo_name;size:255"`
	Stars         int        `gorm:"column:stars;index:idx_github_stars"`
	Forks         int        `gorm:"column:forks"`
	OpenIssues    int        `gorm:"column:open_issues"`
	Watchers      int        `gorm:"column:watchers"`
	Subscribers   int        `gorm:"column:subscribers"`
	LastPush      *time.Time `gorm:"column:last_push"`
	RepoCreatedAt *time.Time `gorm:"column:created_at"`
	License       string     `gorm:"column:license;size:128"`
	Language      string     `gorm:"column:language;size:128"`
	Topics        string     `gorm:"column:topics;type:text"`
	IsArchived    bool       `gorm:"column:is_archived;default:false"`
	IsFork        bool       `gorm:"column:is_fork;default:false"`
	DefaultBranch string     `gorm:"column:default_branch;size:255"`
	EnrichedAt    time.Time  `gorm:"column:enriched_at"`
}

// TableName returns the table name.
func (GitHubSignalModel) TableName() string { return "github_signals" }

// PackageDownloadsModel is a download-count sample per package.
type PackageDownloadsModel struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement"`
	ServerName         string    `gorm:"column:server_name;uniqueIndex:uq_pkg_downloads;size:512;not null"`
	RegistryType       string    `gorm:"column:registry_type;uniqueIndex:uq_pkg_downloads;size:64;not null"`
	PackageName        string    `gorm:"column:package_name;uniqueIndex:uq_pkg_downloads;size:512;not null"`
	DownloadsLastDay   int64     `gorm:"column:downloads_last_day"`
	DownloadsLastWeek  int64     `gorm:"column:downloads_last_week"`
	DownloadsLastMonth int64     `gorm:"column:downloads_last_month"`
	TotalDownloads     int64     `gorm:"column:total_downloads"`
	EnrichedAt         time.Time `gorm:"column:enriched_at"`
}

// TableName returns the table name.
func (PackageDownloadsModel) TableName() string { return "package_downloads" }

// DependencySignalModel is a dependents count from libraries.io.
type DependencySignalModel struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement"`
	ServerName          string    `gorm:"column:server_name;index:idx_deps_server;uniqueIndex:uq_dependency_signals;size:512;not null"`
	PackageName         string    `gorm:"column:package_name;uniqueIndex:uq_dependency_signals;size:512;not null"`
	Platform            string    `gorm:"column:platform;size:64"`
	DependentsCount     int       `gorm:"column:dependents_count;index:idx_deps_count"`
	DependentReposCount int       `gorm:"column:dependent_repos_count"`
	SourceRank          int       `gorm:"column:sourcerank"`
	EnrichedAt          time.Time `gorm:"column:enriched_at"`
}

// TableName returns the table name.
func (DependencySignalModel) TableName() string { return "dependency_signals" }

// ConfigReferenceModel is a code-search result per (server, config file).
type ConfigReferenceModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ServerName     string    `gorm:"column:server_name;index:idx_config_server;uniqueIndex:uq_config_references;size:512;not null"`
	SearchTerm     string    `gorm:"column:search_term;size:512;not null"`
	ConfigType     string    `gorm:"column:config_type;index:idx_config_type;uniqueIndex:uq_config_references;size:128;not null"`
	ReferenceCount int       `gorm:"column:reference_count;default:0"`
	SampleRepos    string    `gorm:"column:sample_repos;type:text"`
	EnrichedAt     time.Time `gorm:"column:enriched_at"`
}

// TableName returns the table name.
func (ConfigReferenceModel) TableName() string { return "config_references" }

// CrossListingModel records a server's listing in another directory.
type CrossListingModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	ServerName   string    `gorm:"column:server_name;uniqueIndex:uq_cross_listings;size:512;not null"`
	RegistryName string    `gorm:"column:registry_name;uniqueIndex:uq_cross_listings;size:128;not null"`
	RegistryID   string    `gorm:"column:registry_id;size:255"`
	RegistryURL  string    `gorm:"column:registry_url;size:1024"`
	Attributes   string    `gorm:"column:attributes;type:text"`
	LicenseName  string    `gorm:"column:license_name;size:255"`
	LicenseURL   string    `gorm:"column:license_url;size:1024"`
	EnrichedAt   time.Time `gorm:"column:enriched_at"`
}

// TableName returns the table name.
func (CrossListingModel) TableName() string { return "cross_listings" }

// ServiceCostModel is the per-server service cost analysis.
type ServiceCostModel struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement"`
	ServerName          string    `gorm:"column:server_name;uniqueIndex;size:512;not null"`
	RequiresPaidService bool      `gorm:"column:requires_paid_service;default:false"`
	PaidServices        string    `gorm:"column:paid_services;type:text"`
	FreeTierAvailable   *bool     `gorm:"column:free_tier_available"`
	CostEstimate        string    `gorm:"column:cost_estimate;type:text"`
	Notes               string    `gorm:"column:notes;type:text"`
	EnrichedAt          time.Time `gorm:"column:enriched_at"`
}

// TableName returns the table name.
func (ServiceCostModel) TableName() string { return "service_cost_hints" }

// BacklinkEdgeModel is one scored reference from an external repository.
type BacklinkEdgeModel struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	ServerName     string     `gorm:"column:server_name;index:idx_edges_server;uniqueIndex:uq_backlink_edges;size:512;not null"`
	ReferencerRepo string     `gorm:"column:referencer_repo;index:idx_edges_repo;uniqueIndex:uq_backlink_edges;size:512;not null"`
	Tier           string     `gorm:"column:tier;index:idx_edges_tier;uniqueIndex:uq_backlink_edges;size:64;not null"`
	TierWeight     float64    `gorm:"column:tier_weight;not null"`
	RepoStars      *int       `gorm:"column:repo_stars;default:0"`
	RepoPushedAt   *time.Time `gorm:"column:repo_pushed_at"`
	IsArchived     bool       `gorm:"column:is_archived;default:false"`
	IsFork         bool       `gorm:"column:is_fork;default:false"`
	EdgeScore      float64    `gorm:"column:edge_score"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

// TableName returns the table name.
func (BacklinkEdgeModel) TableName() string { return "backlink_edges" }

// BacklinkScoreModel is the aggregated backlink result per server.
type BacklinkScoreModel struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	ServerName        string    `gorm:"column:server_name;uniqueIndex;size:512;not null"`
	RawScore          float64   `gorm:"column:raw_score;default:0"`
	NormalizedScore   float64   `gorm:"column:normalized_score;index:idx_scores_normalized;default:0"`
	Tier1Contribution float64   `gorm:"column:tier1_contribution;default:0"`
	Tier2Contribution float64   `gorm:"column:tier2_contribution;default:0"`
	Tier3Contribution float64   `gorm:"column:tier3_contribution;default:0"`
	Tier4Contribution float64   `gorm:"column:tier4_contribution;default:0"`
	UniqueRepos       int       `gorm:"column:unique_repos;default:0"`
	ComputedAt        time.Time `gorm:"column:computed_at"`
}

// TableName returns the table name.
func (BacklinkScoreModel) TableName() string { return "backlink_scores" }

// MarketRankingModel is the composite marketplace rank per server.
type MarketRankingModel struct {
	ServerName      string    `gorm:"column:server_name;primaryKey;size:512"`
	TotalScore      float64   `gorm:"column:total_score;index:idx_rankings_score;default:0"`
	UsageScore      float64   `gorm:"column:usage_score;default:0"`
	ReputationScore float64   `gorm:"column:reputation_score;default:0"`
	ActivityScore   float64   `gorm:"column:activity_score;default:0"`
	ReachScore      float64   `gorm:"column:reach_score;default:0"`
	IsZeroAuth      bool      `gorm:"column:is_zero_auth;default:false"`
	IsVerified      bool      `gorm:"column:is_verified;default:false"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (MarketRankingModel) TableName() string { return "market_rankings" }

// SearchDocModel is the flattened search document per tool.
type SearchDocModel struct {
	ToolID     int64     `gorm:"column:tool_id;primaryKey"`
	ToolName   string    `gorm:"column:tool_name;size:255"`
	ServerName string    `gorm:"column:server_name;size:512"`
	NameText   string    `gorm:"column:name_text;type:text"`
	DescText   string    `gorm:"column:desc_text;type:text"`
	ParamsText string    `gorm:"column:params_text;type:text"`
	FullDoc    string    `gorm:"column:full_doc;type:text"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (SearchDocModel) TableName() string { return "tools_search" }
