// Package fault defines the typed errors raised by injected chaos and by
// the resilience patterns.
//
// Every fault carries a stable Code, a message, an optional protocol status
// code and a retryability flag. Retryability is derived from the status code
// (408, 409, 429 and 5xx are retryable) unless set explicitly with
// WithRetryable.
//
// Faults compare by code under errors.Is, so callers can match against the
// package sentinels:
//
//	if errors.Is(err, fault.ErrCircuitOpen) {
//	    // fail fast path
//	}
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Code is the machine-readable identifier of a fault.
type Code string

// Injected fault codes.
const (
	CodeFailure            Code = "FAILURE"
	CodeTimeout            Code = "TIMEOUT"
	CodePacketLoss         Code = "NETWORK_PACKET_LOSS"
	CodeDisconnect         Code = "NETWORK_DISCONNECT"
	CodeDNS                Code = "NETWORK_DNS_FAILURE"
	CodeOffline            Code = "NETWORK_OFFLINE"
	CodeHTTP               Code = "HTTP_ERROR"
	CodeRateLimit          Code = "RATE_LIMIT"
	CodeAIRateLimit        Code = "AI_RATE_LIMIT"
	CodeAIOverloaded       Code = "AI_OVERLOADED"
	CodeAIContextLength    Code = "AI_CONTEXT_LENGTH"
	CodeAIContentFilter    Code = "AI_CONTENT_FILTER"
	CodeAIModelUnavailable Code = "AI_MODEL_UNAVAILABLE"
	CodeAIInvalidAPIKey    Code = "AI_INVALID_API_KEY"
	CodeAIQuotaExceeded    Code = "AI_QUOTA_EXCEEDED"
	CodeAIEmptyResponse    Code = "AI_EMPTY_RESPONSE"
	CodeStreamCut          Code = "STREAM_CUT"
	CodeToolFailure        Code = "TOOL_FAILURE"
	CodeToolTimeout        Code = "TOOL_TIMEOUT"
)

// Resilience pattern fault codes.
const (
	CodeCircuitOpen       Code = "CIRCUIT_OPEN"
	CodeBulkheadFull      Code = "BULKHEAD_FULL"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeAborted           Code = "ABORTED"
	CodeHedgeFailed       Code = "HEDGE_FAILED"
	CodeReset             Code = "RESET"
)

// Fault is a typed error carrying protocol-accurate fields.
type Fault struct {
	Code       Code
	Message    string
	StatusCode int
	Retryable  bool
	RetryAfter time.Duration
	Data       map[string]any

	retryableSet bool
}

// Option customizes a fault at construction.
type Option func(*Fault)

// WithStatus sets the protocol status code.
func WithStatus(code int) Option {
	return func(f *Fault) {
		f.StatusCode = code
	}
}

// WithRetryable overrides the status-derived retryability.
func WithRetryable(retryable bool) Option {
	return func(f *Fault) {
		f.Retryable = retryable
		f.retryableSet = true
	}
}

// WithRetryAfter attaches a retry-after hint.
func WithRetryAfter(d time.Duration) Option {
	return func(f *Fault) {
		f.RetryAfter = d
	}
}

// WithData attaches a structured payload entry.
func WithData(key string, value any) Option {
	return func(f *Fault) {
		if f.Data == nil {
			f.Data = make(map[string]any)
		}
		f.Data[key] = value
	}
}

// New creates a fault. Retryability follows the status code unless an
// option sets it explicitly.
func New(code Code, message string, opts ...Option) *Fault {
	f := &Fault{Code: code, Message: message}
	for _, opt := range opts {
		opt(f)
	}
	if !f.retryableSet {
		f.Retryable = IsRetryableStatus(f.StatusCode)
	}
	return f
}

// Error implements error.
func (f *Fault) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", f.Code, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Is matches any fault with the same code.
func (f *Fault) Is(target error) bool {
	var t *Fault
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == f.Code
}

// IsRetryableStatus reports whether a status code is conventionally
// retryable: 408, 409, 429 or any 5xx.
func IsRetryableStatus(status int) bool {
	switch {
	case status == 408, status == 409, status == 429:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// As extracts the fault from an error chain.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// CodeOf returns the fault code of err, or "" if err is not a fault.
func CodeOf(err error) Code {
	if f, ok := As(err); ok {
		return f.Code
	}
	return ""
}

// IsRetryable reports whether err is a fault marked retryable.
func IsRetryable(err error) bool {
	f, ok := As(err)
	return ok && f.Retryable
}

// Sentinels for errors.Is matching.
var (
	ErrFailure           = &Fault{Code: CodeFailure}
	ErrTimeout           = &Fault{Code: CodeTimeout}
	ErrStreamCut         = &Fault{Code: CodeStreamCut}
	ErrCircuitOpen       = &Fault{Code: CodeCircuitOpen}
	ErrBulkheadFull      = &Fault{Code: CodeBulkheadFull}
	ErrRateLimitExceeded = &Fault{Code: CodeRateLimitExceeded}
	ErrAborted           = &Fault{Code: CodeAborted}
	ErrReset             = &Fault{Code: CodeReset}
)
