package persistence

import (
	"encoding/json"
	"time"

	"github.com/wisplabs/wisp/domain/registry"
	"github.com/wisplabs/wisp/domain/scoring"
	"github.com/wisplabs/wisp/domain/signal"
)

// marshalJSON encodes v, returning "" when encoding fails.
func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func unmarshalStringMap(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// ServerMapper maps between registry.Server and ServerModel.
type ServerMapper struct{}

// ToDomain converts a model to a domain server.
func (ServerMapper) ToDomain(m ServerModel) registry.Server {
	return registry.NewServerWithOptions(m.Name, m.Description, m.Version,
		registry.WithSchemaURL(m.SchemaURL),
		registry.WithRepository(m.RepositoryURL, m.RepositorySource),
		registry.WithWebsiteURL(m.WebsiteURL),
		registry.WithLatest(m.IsLatest),
		registry.WithStatus(m.Status),
		registry.WithPublishedAt(m.PublishedAt),
		registry.WithUpdatedAt(m.UpdatedAt),
		registry.WithRawJSON(m.RawJSON),
		registry.WithExtractedAt(m.ExtractedAt),
	)
}

// ToModel converts a domain server to a model.
func (ServerMapper) ToModel(s registry.Server) ServerModel {
	return ServerModel{
		Name:             s.Name(),
		Description:      s.Description(),
		Version:          s.Version(),
		SchemaURL:        s.SchemaURL(),
		RepositoryURL:    s.RepositoryURL(),
		RepositorySource: s.RepositorySource(),
		WebsiteURL:       s.WebsiteURL(),
		IsLatest:         s.IsLatest(),
		Status:           s.Status(),
		PublishedAt:      s.PublishedAt(),
		UpdatedAt:        s.UpdatedAt(),
		RawJSON:          s.RawJSON(),
		ExtractedAt:      s.ExtractedAt(),
	}
}

// PackageMapper maps between registry.Package and PackageModel.
type PackageMapper struct{}

// ToDomain converts a model to a domain package.
func (PackageMapper) ToDomain(m PackageModel) registry.Package {
	return registry.NewPackage(m.ServerName, m.RegistryType, m.Identifier, m.Version, m.TransportType).
		WithTransportURL(m.TransportURL).
		WithRuntimeHint(m.RuntimeHint).
		WithFileSHA256(m.FileSHA256).
		WithRawJSON(m.RawJSON)
}

// ToModel converts a domain package to a model.
func (PackageMapper) ToModel(p registry.Package) PackageModel {
	return PackageModel{
		ServerName:    p.ServerName(),
		RegistryType:  p.RegistryType(),
		Identifier:    p.Identifier(),
		Version:       p.Version(),
		TransportType: p.TransportType(),
		TransportURL:  p.TransportURL(),
		RuntimeHint:   p.RuntimeHint(),
		FileSHA256:    p.FileSHA256(),
		RawJSON:       p.RawJSON(),
	}
}

// RemoteMapper maps between registry.Remote and RemoteModel.
type RemoteMapper struct{}

// ToDomain converts a model to a domain remote.
func (RemoteMapper) ToDomain(m RemoteModel) registry.Remote {
	return registry.NewRemote(m.ServerName, m.TransportType, m.URL, unmarshalStringMap(m.HeadersJSON))
}

// ToModel converts a domain remote to a model.
func (RemoteMapper) ToModel(r registry.Remote) RemoteModel {
	headers := ""
	if h := r.Headers(); len(h) > 0 {
		headers = marshalJSON(h)
	}
	return RemoteModel{
		ServerName:    r.ServerName(),
		TransportType: r.TransportType(),
		URL:           r.URL(),
		HeadersJSON:   headers,
	}
}

// LocalSourceMapper maps between registry.LocalSource and LocalSourceModel.
type LocalSourceMapper struct{}

// ToDomain converts a model to a domain local source.
func (LocalSourceMapper) ToDomain(m LocalSourceModel) registry.LocalSource {
	return registry.NewLocalSource(m.ServerName, m.Command,
		unmarshalStrings(m.ArgsJSON), m.WorkingDir, unmarshalStringMap(m.EnvJSON))
}

// ToModel converts a domain local source to a model.
func (LocalSourceMapper) ToModel(l registry.LocalSource) LocalSourceModel {
	args := ""
	if a := l.Args(); len(a) > 0 {
		args = marshalJSON(a)
	}
	env := ""
	if e := l.Env(); len(e) > 0 {
		env = marshalJSON(e)
	}
	return LocalSourceModel{
		ServerName: l.ServerName(),
		Command:    l.Command(),
		ArgsJSON:   args,
		WorkingDir: l.WorkingDir(),
		EnvJSON:    env,
	}
}

// EnvVarMapper maps between registry.EnvVar and EnvVarModel.
type EnvVarMapper struct{}

// ToDomain converts a model to a domain env var.
func (EnvVarMapper) ToDomain(m EnvVarModel) registry.EnvVar {
	v := registry.NewEnvVar(m.ServerName, m.VarName, m.Description, m.IsRequired, m.IsSecret).
		WithFormat(m.Format).
		WithDefaultValue(m.DefaultValue)
	if choices := unmarshalStrings(m.Choices); len(choices) > 0 {
		v = v.WithChoices(choices)
	}
	return v
}

// ToModel converts a domain env var to a model.
func (EnvVarMapper) ToModel(v registry.EnvVar) EnvVarModel {
	choices := ""
	if c := v.Choices(); len(c) > 0 {
		choices = marshalJSON(c)
	}
	return EnvVarModel{
		ServerName:   v.ServerName(),
		VarName:      v.VarName(),
		Description:  v.Description(),
		IsRequired:   v.IsRequired(),
		IsSecret:     v.IsSecret(),
		Format:       v.Format(),
		DefaultValue: v.DefaultValue(),
		Choices:      choices,
	}
}

// IconMapper maps between registry.Icon and IconModel.
type IconMapper struct{}

// ToDomain converts a model to a domain icon.
func (IconMapper) ToDomain(m IconModel) registry.Icon {
	return registry.NewIcon(m.ServerName, m.Src, m.MimeType, m.Theme, unmarshalStrings(m.Sizes))
}

// ToModel converts a domain icon to a model.
func (IconMapper) ToModel(i registry.Icon) IconModel {
	sizes := ""
	if s := i.Sizes(); len(s) > 0 {
		sizes = marshalJSON(s)
	}
	return IconModel{
		ServerName: i.ServerName(),
		Src:        i.Src(),
		MimeType:   i.MimeType(),
		Theme:      i.Theme(),
		Sizes:      sizes,
	}
}

// ToolMapper maps between registry.Tool and ToolModel.
type ToolMapper struct{}

// ToDomain converts a model to a domain tool.
func (ToolMapper) ToDomain(m ToolModel) registry.Tool {
	return registry.NewTool(m.ServerName, m.ToolName, m.Title, m.Description).
		WithInputSchema(m.InputSchema).
		WithOutputSchema(m.OutputSchema).
		WithExtractedAt(m.ExtractedAt)
}

// ToModel converts a domain tool to a model.
func (ToolMapper) ToModel(t registry.Tool) ToolModel {
	return ToolModel{
		ServerName:   t.ServerName(),
		ToolName:     t.Name(),
		Title:        t.Title(),
		Description:  t.Description(),
		InputSchema:  t.InputSchema(),
		OutputSchema: t.OutputSchema(),
		ExtractedAt:  t.ExtractedAt(),
	}
}

// ToolParameterMapper maps between registry.ToolParameter and its model.
type ToolParameterMapper struct{}

// ToDomain converts a model to a domain parameter.
func (ToolParameterMapper) ToDomain(m ToolParameterModel) registry.ToolParameter {
	return registry.NewToolParameter(m.ServerName, m.ToolName, m.ParamName, m.ParamType, m.Description, m.IsRequired).
		WithDefaultJSON(m.DefaultValue).
		WithEnumJSON(m.EnumValues)
}

// ToModel converts a domain parameter to a model.
func (ToolParameterMapper) ToModel(p registry.ToolParameter) ToolParameterModel {
	return ToolParameterModel{
		ServerName:   p.ServerName(),
		ToolName:     p.ToolName(),
		ParamName:    p.Name(),
		ParamType:    p.Type(),
		Description:  p.Description(),
		IsRequired:   p.Required(),
		DefaultValue: p.DefaultJSON(),
		EnumValues:   p.EnumJSON(),
	}
}

// ResourceMapper maps between registry.Resource and ResourceModel.
type ResourceMapper struct{}

// ToDomain converts a model to a domain resource.
func (ResourceMapper) ToDomain(m ResourceModel) registry.Resource {
	return registry.NewResource(m.ServerName, m.URI, m.Name, m.Description, m.MimeType)
}

// ToModel converts a domain resource to a model.
func (ResourceMapper) ToModel(r registry.Resource) ResourceModel {
	return ResourceModel{
		ServerName:  r.ServerName(),
		URI:         r.URI(),
		Name:        r.Name(),
		Description: r.Description(),
		MimeType:    r.MimeType(),
		ExtractedAt: r.ExtractedAt(),
	}
}

// PromptMapper maps between registry.Prompt and PromptModel.
type PromptMapper struct{}

// ToDomain converts a model to a domain prompt.
func (PromptMapper) ToDomain(m PromptModel) registry.Prompt {
	return registry.NewPrompt(m.ServerName, m.PromptName, m.Title, m.Description, m.ArgumentsJSON)
}

// ToModel converts a domain prompt to a model.
func (PromptMapper) ToModel(p registry.Prompt) PromptModel {
	return PromptModel{
		ServerName:    p.ServerName(),
		PromptName:    p.Name(),
		Title:         p.Title(),
		Description:   p.Description(),
		ArgumentsJSON: p.ArgumentsJSON(),
		ExtractedAt:   p.ExtractedAt(),
	}
}

// ExtractionStatusMapper maps between signal.ExtractionStatus and its model.
type ExtractionStatusMapper struct{}

// ToDomain converts a model to a domain extraction status.
func (ExtractionStatusMapper) ToDomain(m ExtractionStatusModel) signal.ExtractionStatus {
	return signal.RestoreExtractionStatus(m.ServerName, m.Status, m.FailureCategory, m.FailureReason,
		signal.ExtractionCounts{Tools: m.ToolsCount, Resources: m.ResourcesCount, Prompts: m.PromptsCount},
		m.ConnectionMethod, m.RetryCount, m.LastAttemptedAt, m.LastSuccessfulAt)
}

// ToModel converts a domain extraction status to a model.
func (ExtractionStatusMapper) ToModel(s signal.ExtractionStatus) ExtractionStatusModel {
	counts := s.Counts()
	return ExtractionStatusModel{
		ServerName:       s.ServerName(),
		Status:           s.Status(),
		FailureCategory:  s.FailureCategory(),
		FailureReason:    s.FailureReason(),
		ToolsCount:       counts.Tools,
		ResourcesCount:   counts.Resources,
		PromptsCount:     counts.Prompts,
		ConnectionMethod: s.ConnectionMethod(),
		LastAttemptedAt:  s.LastAttemptedAt(),
		LastSuccessfulAt: s.LastSuccessfulAt(),
		RetryCount:       s.RetryCount(),
	}
}

// EnrichmentStatusMapper maps between signal.EnrichmentStatus and its model.
type EnrichmentStatusMapper struct{}

// ToDomain converts a model to a domain enrichment status.
func (EnrichmentStatusMapper) ToDomain(m EnrichmentStatusModel) signal.EnrichmentStatus {
	return signal.RestoreEnrichmentStatus(m.ServerName, m.EnrichmentType, m.Status,
		m.FailureReason, m.RetryCount, m.LastAttemptedAt)
}

// ToModel converts a domain enrichment status to a model.
func (EnrichmentStatusMapper) ToModel(s signal.EnrichmentStatus) EnrichmentStatusModel {
	return EnrichmentStatusModel{
		ServerName:      s.ServerName(),
		EnrichmentType:  s.EnrichmentType(),
		Status:          s.Status(),
		FailureReason:   s.FailureReason(),
		LastAttemptedAt: s.LastAttemptedAt(),
		RetryCount:      s.RetryCount(),
	}
}

// GitHubSignalMapper maps between signal.GitHubRepo and GitHubSignalModel.
type GitHubSignalMapper struct{}

// ToDomain converts a model to a domain GitHub repo.
func (GitHubSignalMapper) ToDomain(m GitHubSignalModel) signal.GitHubRepo {
	return signal.NewGitHubRepoWithOptions(m.ServerName, m.RepoOwner, m.RepoName,
		signal.WithCounts(m.Stars, m.Forks, m.OpenIssues, m.Watchers),
		signal.WithSubscribers(m.Subscribers),
		signal.WithRepoDetails(m.Language, m.License, unmarshalStrings(m.Topics), m.DefaultBranch),
		signal.WithFlags(m.IsArchived, m.IsFork),
		signal.WithTimestamps(m.LastPush, m.RepoCreatedAt),
		signal.WithEnrichedAt(m.EnrichedAt),
	)
}

// ToModel converts a domain GitHub repo to a model.
func (GitHubSignalMapper) ToModel(g signal.GitHubRepo) GitHubSignalModel {
	topics := ""
	if t := g.Topics(); len(t) > 0 {
		topics = marshalJSON(t)
	}
	return GitHubSignalModel{
		ServerName:    g.ServerName(),
		RepoOwner:     g.Owner(),
		RepoName:      g.Repo(),
		Stars:         g.Stars(),
		Forks:         g.Forks(),
		OpenIssues:    g.OpenIssues(),
		Watchers:      g.Watchers(),
		Subscribers:   g.Subscribers(),
		LastPush:      g.PushedAt(),
		RepoCreatedAt: g.RepoCreatedAt(),
		License:       g.License(),
		Language:      g.Language(),
		Topics:        topics,
		IsArchived:    g.Archived(),
		IsFork:        g.Fork(),
		DefaultBranch: g.DefaultBranch(),
		EnrichedAt:    g.EnrichedAt(),
	}
}

// PackageDownloadsMapper maps between signal.PackageDownloads and its model.
type PackageDownloadsMapper struct{}

// ToDomain converts a model to a domain downloads sample.
func (PackageDownloadsMapper) ToDomain(m PackageDownloadsModel) signal.PackageDownloads {
	return signal.NewPackageDownloads(m.ServerName, m.RegistryType, m.PackageName,
		signal.DownloadCounts{
			LastDay:   m.DownloadsLastDay,
			LastWeek:  m.DownloadsLastWeek,
			LastMonth: m.DownloadsLastMonth,
			Total:     m.TotalDownloads,
		})
}

// ToModel converts a domain downloads sample to a model.
func (PackageDownloadsMapper) ToModel(p signal.PackageDownloads) PackageDownloadsModel {
	counts := p.Counts()
	return PackageDownloadsModel{
		ServerName:         p.ServerName(),
		RegistryType:       p.RegistryType(),
		PackageName:        p.PackageName(),
		DownloadsLastDay:   counts.LastDay,
		DownloadsLastWeek:  counts.LastWeek,
		DownloadsLastMonth: counts.LastMonth,
		TotalDownloads:     counts.Total,
		EnrichedAt:         p.EnrichedAt(),
	}
}

// DependencySignalMapper maps between signal.DependencySignal and its model.
type DependencySignalMapper struct{}

// ToDomain converts a model to a domain dependency signal.
func (DependencySignalMapper) ToDomain(m DependencySignalModel) signal.DependencySignal {
	return signal.NewDependencySignal(m.ServerName, m.Platform, m.PackageName,
		m.DependentsCount, m.DependentReposCount, m.SourceRank)
}

// ToModel converts a domain dependency signal to a model.
func (DependencySignalMapper) ToModel(d signal.DependencySignal) DependencySignalModel {
	return DependencySignalModel{
		ServerName:          d.ServerName(),
		PackageName:         d.Identifier(),
		Platform:            d.Platform(),
		DependentsCount:     d.DependentsCount(),
		DependentReposCount: d.DependentRepos(),
		SourceRank:          d.Rank(),
		EnrichedAt:          d.EnrichedAt(),
	}
}

// ConfigReferenceMapper maps between signal.ConfigReference and its model.
type ConfigReferenceMapper struct{}

// ToDomain converts a model to a domain config reference.
func (ConfigReferenceMapper) ToDomain(m ConfigReferenceModel) signal.ConfigReference {
	return signal.NewConfigReference(m.ServerName, m.SearchTerm, m.ConfigType,
		m.ReferenceCount, unmarshalStrings(m.SampleRepos))
}

// ToModel converts a domain config reference to a model.
func (ConfigReferenceMapper) ToModel(c signal.ConfigReference) ConfigReferenceModel {
	samples := ""
	if s := c.SampleRepos(); len(s) > 0 {
		samples = marshalJSON(s)
	}
	return ConfigReferenceModel{
		ServerName:     c.ServerName(),
		SearchTerm:     c.SearchTerm(),
		ConfigType:     c.ConfigType(),
		ReferenceCount: c.RefCount(),
		SampleRepos:    samples,
		EnrichedAt:     c.EnrichedAt(),
	}
}

// CrossListingMapper maps between signal.CrossListing and its model.
type CrossListingMapper struct{}

// ToDomain converts a model to a domain cross listing.
func (CrossListingMapper) ToDomain(m CrossListingModel) signal.CrossListing {
	return signal.NewCrossListing(m.ServerName, m.RegistryName, m.RegistryID, m.RegistryURL, m.Attributes).
		WithLicense(m.LicenseName, m.LicenseURL)
}

// ToModel converts a domain cross listing to a model.
func (CrossListingMapper) ToModel(c signal.CrossListing) CrossListingModel {
	return CrossListingModel{
		ServerName:   c.ServerName(),
		RegistryName: c.RegistryName(),
		RegistryID:   c.RegistryID(),
		RegistryURL:  c.RegistryURL(),
		Attributes:   c.Attributes(),
		LicenseName:  c.LicenseName(),
		LicenseURL:   c.LicenseURL(),
		EnrichedAt:   c.EnrichedAt(),
	}
}

// ServiceCostMapper converts signal.ServiceCost to its model. Cost rows are
// write-only from the analyzer's point of view.
type ServiceCostMapper struct{}

// ToModel converts a domain service cost to a model.
func (ServiceCostMapper) ToModel(c signal.ServiceCost) ServiceCostModel {
	services := ""
	if s := c.PaidServices(); len(s) > 0 {
		services = marshalJSON(s)
	}
	return ServiceCostModel{
		ServerName:          c.ServerName(),
		RequiresPaidService: c.RequiresPaid(),
		PaidServices:        services,
		FreeTierAvailable:   c.FreeTierAvailable(),
		Notes:               c.Notes(),
		EnrichedAt:          c.EnrichedAt(),
	}
}

// BacklinkEdgeMapper maps between scoring.BacklinkEdge and its model.
type BacklinkEdgeMapper struct{}

// ToDomain converts a model to a domain backlink edge. The edge score is
// taken from the stored row, not recomputed.
func (BacklinkEdgeMapper) ToDomain(m BacklinkEdgeModel) scoring.BacklinkEdge {
	meta := scoring.RepoMeta{
		PushedAt: m.RepoPushedAt,
		Archived: m.IsArchived,
		Fork:     m.IsFork,
	}
	if m.RepoStars != nil {
		meta.Stars = *m.RepoStars
	}
	if m.Tier == scoring.TierMetadataCache {
		return scoring.NewCacheEdge(m.ReferencerRepo, meta)
	}
	return scoring.RestoreBacklinkEdge(m.ServerName, m.ReferencerRepo, m.Tier, m.TierWeight, meta, m.EdgeScore)
}

// ToModel converts a domain backlink edge to a model.
func (BacklinkEdgeMapper) ToModel(e scoring.BacklinkEdge) BacklinkEdgeModel {
	return BacklinkEdgeModel{
		ServerName:     e.ServerName(),
		ReferencerRepo: e.ReferencerRepo(),
		Tier:           e.Tier(),
		TierWeight:     e.TierWeight(),
		RepoStars:      e.RepoStars(),
		RepoPushedAt:   e.RepoPushedAt(),
		IsArchived:     e.IsArchived(),
		IsFork:         e.IsFork(),
		EdgeScore:      e.Score(),
		CreatedAt:      time.Now().UTC(),
	}
}

// BacklinkScoreMapper maps between scoring.BacklinkScore and its model.
type BacklinkScoreMapper struct{}

// ToDomain converts a model to a domain backlink score.
func (BacklinkScoreMapper) ToDomain(m BacklinkScoreModel) scoring.BacklinkScore {
	return scoring.NewBacklinkScore(m.ServerName, m.RawScore, m.NormalizedScore,
		map[string]float64{
			scoring.TierConfig:     m.Tier1Contribution,
			scoring.TierDependency: m.Tier2Contribution,
			scoring.TierDeployment: m.Tier3Contribution,
			scoring.TierCurated:    m.Tier4Contribution,
		}, m.UniqueRepos)
}

// ToModel converts a domain backlink score to a model.
func (BacklinkScoreMapper) ToModel(s scoring.BacklinkScore) BacklinkScoreModel {
	return BacklinkScoreModel{
		ServerName:        s.ServerName(),
		RawScore:          s.Raw(),
		NormalizedScore:   s.Normalized(),
		Tier1Contribution: s.TierScore(scoring.TierConfig),
		Tier2Contribution: s.TierScore(scoring.TierDependency),
		Tier3Contribution: s.TierScore(scoring.TierDeployment),
		Tier4Contribution: s.TierScore(scoring.TierCurated),
		UniqueRepos:       s.UniqueRepos(),
		ComputedAt:        s.ComputedAt(),
	}
}

// MarketRankingMapper maps between scoring.MarketRanking and its model.
type MarketRankingMapper struct{}

// ToDomain converts a model to a domain ranking.
func (MarketRankingMapper) ToDomain(m MarketRankingModel) scoring.MarketRanking {
	return scoring.NewMarketRanking(m.ServerName, m.UsageScore, m.ReputationScore,
		m.ActivityScore, m.ReachScore, m.IsZeroAuth, m.IsVerified)
}

// ToModel converts a domain ranking to a model.
func (MarketRankingMapper) ToModel(r scoring.MarketRanking) MarketRankingModel {
	return MarketRankingModel{
		ServerName:      r.ServerName(),
		TotalScore:      r.Total(),
		UsageScore:      r.Usage(),
		ReputationScore: r.Reputation(),
		ActivityScore:   r.Activity(),
		ReachScore:      r.Reach(),
		IsZeroAuth:      r.ZeroAuth(),
		IsVerified:      r.Verified(),
		UpdatedAt:       r.ComputedAt(),
	}
}
