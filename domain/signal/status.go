package signal

import "time"

// Extraction connection methods.
const (
	MethodRemote = "remote"
	MethodStdio  = "stdio"
	MethodLocal  = "local"
)

// Extraction and enrichment status values. Failed attempts carry the
// failure class so permanent failures can be skipped on later rounds.
const (
	StatusPending          = "pending"
	StatusSuccess          = "success"
	StatusPermanentFailure = "permanent_failure"
	StatusTransientFailure = "transient_failure"
)

// failureStatus maps a failure class to its status value.
func failureStatus(f Failure) string {
	if f.Permanent() {
		return StatusPermanentFailure
	}
	return StatusTransientFailure
}

// ExtractionCounts are the entity counts found on a successful extraction.
type ExtractionCounts struct {
	Tools     int
	Resources int
	Prompts   int
}

// ExtractionStatus tracks the extraction outcome for one server. One row
// per server, upserted on every attempt.
type ExtractionStatus struct {
	serverName       string
	status           string
	failureCategory  string
	failureReason    string
	counts           ExtractionCounts
	connectionMethod string
	retryCount       int
	lastAttemptedAt  *time.Time
	lastSuccessfulAt *time.Time
}

// NewExtractionStatus creates a pending ExtractionStatus.
func NewExtractionStatus(serverName string) ExtractionStatus {
	return ExtractionStatus{serverName: serverName, status: StatusPending}
}

// RestoreExtractionStatus rebuilds an ExtractionStatus from persisted state.
func RestoreExtractionStatus(serverName, status, failureCategory, failureReason string,
	counts ExtractionCounts, method string, retryCount int, lastAttempted, lastSuccessful *time.Time) ExtractionStatus {
	return ExtractionStatus{
		serverName:       serverName,
		status:           status,
		failureCategory:  failureCategory,
		failureReason:    failureReason,
		counts:           counts,
		connectionMethod: method,
		retryCount:       retryCount,
		lastAttemptedAt:  lastAttempted,
		lastSuccessfulAt: lastSuccessful,
	}
}

// ServerName returns the server name.
func (s ExtractionStatus) ServerName() string { return s.serverName }

// Status returns the current status value.
func (s ExtractionStatus) Status() string { return s.status }

// FailureCategory returns the reason code of the last failure, if any.
func (s ExtractionStatus) FailureCategory() string { return s.failureCategory }

// FailureReason returns the detail of the last failure, if any.
func (s ExtractionStatus) FailureReason() string { return s.failureReason }

// Counts returns the entity counts from the last success.
func (s ExtractionStatus) Counts() ExtractionCounts { return s.counts }

// ConnectionMethod returns how the last attempt connected.
func (s ExtractionStatus) ConnectionMethod() string { return s.connectionMethod }

// RetryCount returns the consecutive failure count.
func (s ExtractionStatus) RetryCount() int { return s.retryCount }

// LastAttemptedAt returns the timestamp of the last attempt.
func (s ExtractionStatus) LastAttemptedAt() *time.Time { return s.lastAttemptedAt }

// LastSuccessfulAt returns the timestamp of the last success.
func (s ExtractionStatus) LastSuccessfulAt() *time.Time { return s.lastSuccessfulAt }

// MarkSuccess records a successful extraction and resets the retry count.
func (s ExtractionStatus) MarkSuccess(counts ExtractionCounts, method string, at time.Time) ExtractionStatus {
	s.status = StatusSuccess
	s.failureCategory = ""
	s.failureReason = ""
	s.counts = counts
	s.connectionMethod = method
	s.retryCount = 0
	s.lastAttemptedAt = &at
	s.lastSuccessfulAt = &at
	return s
}

// MarkFailure records a failed extraction and increments the retry count.
func (s ExtractionStatus) MarkFailure(f Failure, method string, at time.Time) ExtractionStatus {
	s.status = failureStatus(f)
	s.failureCategory = f.Reason()
	s.failureReason = f.Detail()
	s.connectionMethod = method
	s.retryCount++
	s.lastAttemptedAt = &at
	return s
}

// Retryable reports whether another extraction attempt may succeed.
func (s ExtractionStatus) Retryable() bool {
	return s.status != StatusPermanentFailure
}

// EnrichmentStatus tracks one enrichment source's outcome for one server.
// One row per (server, enrichment type), upserted on every attempt.
type EnrichmentStatus struct {
	serverName      string
	enrichmentType  string
	status          string
	failureReason   string
	retryCount      int
	lastAttemptedAt time.Time
}

// NewEnrichmentSuccess records a successful enrichment.
func NewEnrichmentSuccess(serverName, enrichmentType string) EnrichmentStatus {
	return EnrichmentStatus{
		serverName:      serverName,
		enrichmentType:  enrichmentType,
		status:          StatusSuccess,
		lastAttemptedAt: time.Now().UTC(),
	}
}

// NewEnrichmentFailure records a failed enrichment, classified by message.
func NewEnrichmentFailure(serverName, enrichmentType string, f Failure) EnrichmentStatus {
	return EnrichmentStatus{
		serverName:      serverName,
		enrichmentType:  enrichmentType,
		status:          failureStatus(f),
		failureReason:   f.Reason(),
		lastAttemptedAt: time.Now().UTC(),
	}
}

// RestoreEnrichmentStatus rebuilds an EnrichmentStatus from persisted state.
func RestoreEnrichmentStatus(serverName, enrichmentType, status, failureReason string, retryCount int, lastAttempted time.Time) EnrichmentStatus {
	return EnrichmentStatus{
		serverName:      serverName,
		enrichmentType:  enrichmentType,
		status:          status,
		failureReason:   failureReason,
		retryCount:      retryCount,
		lastAttemptedAt: lastAttempted,
	}
}

// ServerName returns the server name.
func (s EnrichmentStatus) ServerName() string { return s.serverName }

// EnrichmentType returns the source name (github, npm, ...).
func (s EnrichmentStatus) EnrichmentType() string { return s.enrichmentType }

// Status returns the outcome.
func (s EnrichmentStatus) Status() string { return s.status }

// FailureReason returns the failure reason code, if any.
func (s EnrichmentStatus) FailureReason() string { return s.failureReason }

// RetryCount returns the consecutive failure count.
func (s EnrichmentStatus) RetryCount() int { return s.retryCount }

// LastAttemptedAt returns when the enrichment last ran.
func (s EnrichmentStatus) LastAttemptedAt() time.Time { return s.lastAttemptedAt }

// WithRetryCount returns a copy with the retry count set.
func (s EnrichmentStatus) WithRetryCount(n int) EnrichmentStatus {
	s.retryCount = n
	return s
}
