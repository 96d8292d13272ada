package chaos

import (
	"context"
	"time"
)

// EventType identifies what fired.
type EventType string

// Chaos events, one per fired knob.
const (
	EventInvalidAPIKey    EventType = "invalidApiKey"
	EventQuotaExceeded    EventType = "quotaExceeded"
	EventModelUnavailable EventType = "modelUnavailable"
	EventContextLength    EventType = "contextLength"
	EventContentFilter    EventType = "contentFilter"
	EventEmptyResponse    EventType = "emptyResponse"
	EventRateLimit        EventType = "rateLimit"
	EventOverloaded       EventType = "overloaded"
	EventOffline          EventType = "offline"
	EventDNS              EventType = "dns"
	EventDisconnect       EventType = "disconnect"
	EventPacketLoss       EventType = "packetLoss"
	EventStatus           EventType = "status"
	EventFail             EventType = "fail"
	EventTimeout          EventType = "timeout"
	EventDelay            EventType = "delay"
	EventCorrupt          EventType = "corrupt"
	EventStreamCut        EventType = "streamCut"
	EventSlowTokens       EventType = "slowTokens"
	EventCorruptChunk     EventType = "corruptChunk"
	EventPartialResponse  EventType = "partialResponse"
	EventToolFailure      EventType = "toolFailure"
	EventToolTimeout      EventType = "toolTimeout"
)

// Lifecycle events published by wrapped calls and resilience patterns.
const (
	EventCall         EventType = "call"
	EventSuccess      EventType = "success"
	EventFailure      EventType = "failure"
	EventRetry        EventType = "retry"
	EventCircuitOpen  EventType = "circuitOpen"
	EventCircuitClose EventType = "circuitClose"
)

// Event describes one firing. Delay is set for delay-like events, Status
// for injected HTTP statuses and Err for failure events.
type Event struct {
	Type     EventType     `json:"type"`
	Target   string        `json:"target,omitempty"`
	Delay    time.Duration `json:"delay,omitempty"`
	Status   int           `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Err      error         `json:"-"`
}

// IsChaos reports whether the event was an injected fault, delay or
// corruption rather than a lifecycle notification.
func (e Event) IsChaos() bool {
	switch e.Type {
	case EventCall, EventSuccess, EventFailure, EventRetry, EventCircuitOpen, EventCircuitClose:
		return false
	default:
		return true
	}
}

// Call records the outcome of one wrapped invocation.
type Call struct {
	Target   string
	Duration time.Duration
	Err      error
}

// Observer receives every event and call outcome of an Engine. Observers
// are attached at construction and survive Reset.
type Observer interface {
	ObserveEvent(ctx context.Context, ev Event)
	ObserveCall(ctx context.Context, call Call)
}
