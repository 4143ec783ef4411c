// Package signal holds the enrichment domain: failure classification for
// live connections, extraction and enrichment status, and the external
// signals collected about each server.
package signal

import (
	"fmt"
	"strings"
)

// FailureClass partitions connection failures by whether a retry can help.
type FailureClass string

const (
	// FailurePermanent failures will not succeed on retry and suppress the
	// server from future extraction rounds.
	FailurePermanent FailureClass = "permanent"
	// FailureTransient failures may succeed on retry.
	FailureTransient FailureClass = "transient"
)

// Permanent failure reasons.
const (
	ReasonNotFound        = "not_found_404"
	ReasonAuthRequired    = "auth_required"
	ReasonPackageNotFound = "package_not_found"
	ReasonNoExecutable    = "no_executable"
	ReasonInvalidURL      = "invalid_url"
	ReasonDockerDown      = "docker_not_running"
	ReasonProtocolError   = "mcp_protocol_error"
	ReasonResponseError   = "mcp_response_error"
	ReasonSDKError        = "mcp_sdk_error"
	ReasonInvalidResponse = "mcp_invalid_response"
)

// Transient failure reasons.
const (
	ReasonTimeout           = "timeout"
	ReasonConnectionRefused = "connection_refused"
	ReasonRateLimited       = "rate_limited"
	ReasonUnknown           = "unknown_error"
)

// Failure is a classified connection failure.
type Failure struct {
	class  FailureClass
	reason string
	detail string
}

// NewFailure creates a Failure.
func NewFailure(class FailureClass, reason, detail string) Failure {
	return Failure{class: class, reason: reason, detail: detail}
}

// Class returns the retryability class.
func (f Failure) Class() FailureClass { return f.class }

// Reason returns the machine-readable reason code.
func (f Failure) Reason() string { return f.reason }

// Detail returns the human-readable detail.
func (f Failure) Detail() string { return f.detail }

// Permanent reports whether a retry cannot help.
func (f Failure) Permanent() bool { return f.class == FailurePermanent }

// ClassifyHTTPStatus classifies a failure by HTTP status code. Status codes
// take precedence over message text.
func ClassifyHTTPStatus(status int, detail string) Failure {
	switch {
	case status == 404:
		return NewFailure(FailurePermanent, ReasonNotFound, detail)
	case status == 401 || status == 403:
		return NewFailure(FailurePermanent, ReasonAuthRequired, detail)
	case status == 429:
		return NewFailure(FailureTransient, ReasonRateLimited, detail)
	case status >= 500:
		return NewFailure(FailureTransient, fmt.Sprintf("server_error_%d", status), detail)
	default:
		return NewFailure(FailureTransient, ReasonUnknown, detail)
	}
}

// messagePattern maps a lowercase substring in an error message to a
// classified failure reason.
type messagePattern struct {
	substr string
	class  FailureClass
	reason string
}

var messagePatterns = []messagePattern{
	{"404", FailurePermanent, ReasonNotFound},
	{"not found", FailurePermanent, ReasonNotFound},
	{"401", FailurePermanent, ReasonAuthRequired},
	{"403", FailurePermanent, ReasonAuthRequired},
	{"unauthorized", FailurePermanent, ReasonAuthRequired},
	{"forbidden", FailurePermanent, ReasonAuthRequired},
	{"authentication", FailurePermanent, ReasonAuthRequired},
	{"could not determine executable", FailurePermanent, ReasonNoExecutable},
	{"no executable", FailurePermanent, ReasonNoExecutable},
	{"docker", FailurePermanent, ReasonDockerDown},
	{"invalid url", FailurePermanent, ReasonInvalidURL},
	{"npm error 404", FailurePermanent, ReasonPackageNotFound},
	{"package not found", FailurePermanent, ReasonPackageNotFound},
	{"no matching distribution", FailurePermanent, ReasonPackageNotFound},
	{"protocol", FailurePermanent, ReasonProtocolError},
	{"429", FailureTransient, ReasonRateLimited},
	{"rate limit", FailureTransient, ReasonRateLimited},
	{"timed out", FailureTransient, ReasonTimeout},
	{"timeout", FailureTransient, ReasonTimeout},
	{"deadline exceeded", FailureTransient, ReasonTimeout},
	{"connection refused", FailureTransient, ReasonConnectionRefused},
	{"connection reset", FailureTransient, ReasonConnectionRefused},
}

// ClassifyMessage classifies a failure by error message text. First match
// wins; unmatched messages are transient unknown_error.
func ClassifyMessage(message string) Failure {
	lower := strings.ToLower(message)
	for _, p := range messagePatterns {
		if strings.Contains(lower, p.substr) {
			return NewFailure(p.class, p.reason, message)
		}
	}
	return NewFailure(FailureTransient, ReasonUnknown, message)
}
