package fault

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultAIRetryAfter is the retry-after hint of provider rate limits when
// none is configured.
const DefaultAIRetryAfter = 60 * time.Second

// Failure is the generic injected failure.
func Failure(message string) *Fault {
	if message == "" {
		message = "chaos failure"
	}
	return New(CodeFailure, message)
}

// Timeout reports an operation exceeding its deadline.
func Timeout(after time.Duration) *Fault {
	return New(CodeTimeout, fmt.Sprintf("operation timed out after %s", after),
		WithStatus(http.StatusRequestTimeout),
		WithData("timeout", after))
}

// PacketLoss simulates a dropped connection mid-exchange.
func PacketLoss() *Fault {
	return New(CodePacketLoss, "packet loss", WithRetryable(true))
}

// Disconnect simulates a reset connection.
func Disconnect() *Fault {
	return New(CodeDisconnect, "connection reset", WithRetryable(true))
}

// DNS simulates a lookup failure.
func DNS() *Fault {
	return New(CodeDNS, "getaddrinfo ENOTFOUND", WithRetryable(true))
}

// Offline simulates a host with no connectivity.
func Offline() *Fault {
	return New(CodeOffline, "network offline", WithRetryable(true))
}

// HTTP carries an injected response status.
func HTTP(status int) *Fault {
	text := http.StatusText(status)
	if text == "" {
		text = "HTTP error"
	}
	return New(CodeHTTP, fmt.Sprintf("HTTP %d %s", status, text), WithStatus(status))
}

// RateLimit is the generic 429 with a retry-after hint.
func RateLimit(retryAfter time.Duration) *Fault {
	return New(CodeRateLimit, "rate limited",
		WithStatus(http.StatusTooManyRequests),
		WithRetryAfter(retryAfter),
		WithData("retryAfter", retryAfter.Seconds()))
}

// AIRateLimit is a provider rate limit.
func AIRateLimit(retryAfter time.Duration) *Fault {
	if retryAfter <= 0 {
		retryAfter = DefaultAIRetryAfter
	}
	return New(CodeAIRateLimit, "Rate limit exceeded",
		WithStatus(http.StatusTooManyRequests),
		WithRetryAfter(retryAfter),
		WithData("retryAfter", retryAfter.Seconds()))
}

// AIOverloaded is a provider capacity error.
func AIOverloaded() *Fault {
	return New(CodeAIOverloaded, "Model is overloaded", WithStatus(529))
}

// AIContextLength rejects a prompt that exceeds the context window.
func AIContextLength() *Fault {
	return New(CodeAIContextLength, "Context length exceeded", WithStatus(http.StatusBadRequest))
}

// AIContentFilter rejects content blocked by the provider.
func AIContentFilter() *Fault {
	return New(CodeAIContentFilter, "Content filtered", WithStatus(http.StatusBadRequest))
}

// AIModelUnavailable reports a missing or unavailable model.
func AIModelUnavailable(modelID string) *Fault {
	return New(CodeAIModelUnavailable, fmt.Sprintf("Model %s is unavailable", modelID),
		WithStatus(http.StatusServiceUnavailable),
		WithData("modelId", modelID))
}

// AIInvalidAPIKey rejects bad credentials.
func AIInvalidAPIKey() *Fault {
	return New(CodeAIInvalidAPIKey, "Invalid API key", WithStatus(http.StatusUnauthorized))
}

// AIQuotaExceeded reports an exhausted billing quota.
func AIQuotaExceeded() *Fault {
	return New(CodeAIQuotaExceeded, "Quota exceeded", WithStatus(http.StatusPaymentRequired))
}

// AIEmptyResponse reports a successful status with no content.
func AIEmptyResponse() *Fault {
	return New(CodeAIEmptyResponse, "Empty response", WithStatus(http.StatusOK), WithRetryable(false))
}

// StreamCut reports a stream terminated before its finish chunk.
func StreamCut() *Fault {
	return New(CodeStreamCut, "Stream was cut", WithStatus(http.StatusInternalServerError))
}

// ToolFailure reports an injected tool execution failure.
func ToolFailure(tool string) *Fault {
	return New(CodeToolFailure, fmt.Sprintf("Tool %s failed", tool), WithData("tool", tool))
}

// ToolTimeout reports a tool that exceeded its deadline.
func ToolTimeout(tool string) *Fault {
	return New(CodeToolTimeout, fmt.Sprintf("Tool %s timed out", tool),
		WithStatus(http.StatusRequestTimeout),
		WithData("tool", tool))
}

// CircuitOpen rejects a call while the breaker is open.
func CircuitOpen() *Fault {
	return New(CodeCircuitOpen, "circuit breaker is open", WithRetryable(false))
}

// BulkheadFull rejects a call when the queue is at capacity.
func BulkheadFull() *Fault {
	return New(CodeBulkheadFull, "bulkhead queue is full", WithRetryable(false))
}

// RateLimitExceeded rejects a call when no tokens are available.
// retryAfter is the time until the limiter refills.
func RateLimitExceeded(retryAfter time.Duration) *Fault {
	return New(CodeRateLimitExceeded, "rate limit exceeded",
		WithStatus(http.StatusTooManyRequests),
		WithRetryable(false),
		WithRetryAfter(retryAfter))
}

// HedgeFailed reports a hedged call whose attempts produced no result.
func HedgeFailed() *Fault {
	return New(CodeHedgeFailed, "all hedged requests failed", WithRetryable(false))
}

// Aborted reports a call cancelled by an abort signal.
func Aborted() *Fault {
	return New(CodeAborted, "operation aborted", WithRetryable(false))
}

// Reset reports a pending sleep or hang cancelled by an engine reset.
func Reset() *Fault {
	return New(CodeReset, "chaos state was reset", WithRetryable(false))
}
