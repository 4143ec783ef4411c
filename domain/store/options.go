package store

import "time"

// WithServerName filters by the "server_name" column.
func WithServerName(name string) Option {
	return WithCondition("server_name", name)
}

// WithServerNameIn filters by the "server_name" column using IN.
func WithServerNameIn(names []string) Option {
	return WithConditionIn("server_name", names)
}

// WithName filters by the "name" column.
func WithName(name string) Option {
	return WithCondition("name", name)
}

// WithToolName filters by the "tool_name" column.
func WithToolName(name string) Option {
	return WithCondition("tool_name", name)
}

// WithRegistryType filters by the "registry_type" column.
func WithRegistryType(t string) Option {
	return WithCondition("registry_type", t)
}

// WithTransportType filters by the "transport_type" column.
func WithTransportType(t string) Option {
	return WithCondition("transport_type", t)
}

// WithEnrichmentType filters by the "enrichment_type" column.
func WithEnrichmentType(t string) Option {
	return WithCondition("enrichment_type", t)
}

// WithStatus filters by the "status" column.
func WithStatus(s string) Option {
	return WithCondition("status", s)
}

// WithTier filters by the "tier" column.
func WithTier(tier string) Option {
	return WithCondition("tier", tier)
}

// WithStaleBefore filters rows whose enriched_at is missing or older than t.
func WithStaleBefore(t time.Time) Option {
	return WithWhere("enriched_at IS NULL OR enriched_at < ?", t)
}
