package chaos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/mayhem/pkg/random"
)

// ErrInvalidConfig is wrapped by every Validate error.
var ErrInvalidConfig = errors.New("invalid chaos config")

// Range is a delay drawn uniformly from [Min, Max]. A range with Max == 0
// is a fixed delay of Min.
//
// In YAML a range is written as "250ms", "100ms-500ms" or ["100ms", "500ms"].
type Range struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max,omitempty"`
}

// Fixed returns a constant delay.
func Fixed(d time.Duration) Range {
	return Range{Min: d}
}

// Between returns a delay drawn uniformly from [lo, hi].
func Between(lo, hi time.Duration) Range {
	return Range{Min: lo, Max: hi}
}

// IsZero reports whether the range never produces a delay.
func (r Range) IsZero() bool {
	return r.Min <= 0 && r.Max <= 0
}

// Draw picks a delay from the range.
func (r Range) Draw(src *random.Source) time.Duration {
	if r.IsZero() {
		return 0
	}
	if r.Max <= 0 || r.Max == r.Min {
		return r.Min
	}
	return src.DurationBetween(r.Min, r.Max)
}

// String renders the range in its YAML form.
func (r Range) String() string {
	if r.Max <= 0 || r.Max == r.Min {
		return r.Min.String()
	}
	return r.Min.String() + "-" + r.Max.String()
}

// UnmarshalYAML accepts a scalar duration, a "lo-hi" scalar or a two
// element sequence.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return r.parse(node.Value)
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("range needs exactly two values, got %d", len(node.Content))
		}
		lo, err := time.ParseDuration(node.Content[0].Value)
		if err != nil {
			return fmt.Errorf("range min: %w", err)
		}
		hi, err := time.ParseDuration(node.Content[1].Value)
		if err != nil {
			return fmt.Errorf("range max: %w", err)
		}
		*r = Between(lo, hi)
		return nil
	default:
		return fmt.Errorf("range must be a duration or a [min, max] pair")
	}
}

// MarshalYAML writes the scalar form.
func (r Range) MarshalYAML() (any, error) {
	return r.String(), nil
}

// ParseRange parses "100ms", "100ms-500ms" or the empty string.
func ParseRange(s string) (Range, error) {
	var r Range
	err := r.parse(s)
	return r, err
}

func (r *Range) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*r = Range{}
		return nil
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("range: %w", err)
		}
		*r = Fixed(d)
		return nil
	}
	minD, err := time.ParseDuration(strings.TrimSpace(lo))
	if err != nil {
		return fmt.Errorf("range min: %w", err)
	}
	maxD, err := time.ParseDuration(strings.TrimSpace(hi))
	if err != nil {
		return fmt.Errorf("range max: %w", err)
	}
	*r = Between(minD, maxD)
	return nil
}

// RateLimitKnob fires a rate-limit fault carrying a retry-after hint.
type RateLimitKnob struct {
	Rate       float64       `json:"rate" yaml:"rate"`
	RetryAfter time.Duration `json:"retryAfter,omitempty" yaml:"retryAfter,omitempty"`
}

// UnmarshalYAML accepts a bare rate as shorthand for {rate: x}.
func (k *RateLimitKnob) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var rate float64
		if err := node.Decode(&rate); err != nil {
			return fmt.Errorf("rateLimit: %w", err)
		}
		*k = RateLimitKnob{Rate: rate}
		return nil
	}
	type plain RateLimitKnob
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*k = RateLimitKnob(p)
	return nil
}

// TokenUsage overrides reported token counts. Nil fields keep the upstream
// value.
type TokenUsage struct {
	InputTokens  *int `json:"inputTokens,omitempty" yaml:"inputTokens,omitempty"`
	OutputTokens *int `json:"outputTokens,omitempty" yaml:"outputTokens,omitempty"`
}

// Config is a flat set of independent chaos knobs. Every knob is optional:
// a zero probability never fires and a probability of 1 or more always
// fires.
//
// Failure knobs are evaluated in a fixed order and at most one fires per
// call:
//
//	invalidApiKey, quotaExceeded, modelUnavailable, contextLength,
//	contentFilter, emptyResponse, rateLimit, overloaded,
//	offline, dns, disconnect, packetLoss, status, fail, timeout
//
// Delay, Jitter and Spike are additive and apply only when no failure fired.
type Config struct {
	// Disabled bypasses every knob, including the active global config.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`

	// Generic
	Fail        float64       `json:"fail,omitempty" yaml:"fail,omitempty"`
	FailMessage string        `json:"failMessage,omitempty" yaml:"failMessage,omitempty"`
	Timeout     float64       `json:"timeout,omitempty" yaml:"timeout,omitempty"` // hang until the caller gives up
	Delay       Range         `json:"delay,omitempty" yaml:"delay,omitempty"`
	Jitter      time.Duration `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	Spike       Range         `json:"spike,omitempty" yaml:"spike,omitempty"`
	Corrupt     float64       `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`

	// Network
	PacketLoss float64 `json:"packetLoss,omitempty" yaml:"packetLoss,omitempty"`
	Disconnect float64 `json:"disconnect,omitempty" yaml:"disconnect,omitempty"`
	DNS        float64 `json:"dns,omitempty" yaml:"dns,omitempty"`
	Offline    float64 `json:"offline,omitempty" yaml:"offline,omitempty"`

	// HTTP
	Status      float64       `json:"status,omitempty" yaml:"status,omitempty"`
	StatusCodes []int         `json:"statusCodes,omitempty" yaml:"statusCodes,omitempty"` // default 500
	RateLimit   RateLimitKnob `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`

	// Model provider
	Overloaded       float64 `json:"overloaded,omitempty" yaml:"overloaded,omitempty"`
	ContextLength    float64 `json:"contextLength,omitempty" yaml:"contextLength,omitempty"`
	ContentFilter    float64 `json:"contentFilter,omitempty" yaml:"contentFilter,omitempty"`
	ModelUnavailable float64 `json:"modelUnavailable,omitempty" yaml:"modelUnavailable,omitempty"`
	InvalidAPIKey    float64 `json:"invalidApiKey,omitempty" yaml:"invalidApiKey,omitempty"`
	QuotaExceeded    float64 `json:"quotaExceeded,omitempty" yaml:"quotaExceeded,omitempty"`
	EmptyResponse    float64 `json:"emptyResponse,omitempty" yaml:"emptyResponse,omitempty"`
	PartialResponse  float64 `json:"partialResponse,omitempty" yaml:"partialResponse,omitempty"`
	ToolFailure      float64 `json:"toolFailure,omitempty" yaml:"toolFailure,omitempty"`
	ToolTimeout      float64 `json:"toolTimeout,omitempty" yaml:"toolTimeout,omitempty"`

	// Streaming
	SlowTokens    Range   `json:"slowTokens,omitempty" yaml:"slowTokens,omitempty"`
	CorruptChunks float64 `json:"corruptChunks,omitempty" yaml:"corruptChunks,omitempty"`
	StreamCut     float64 `json:"streamCut,omitempty" yaml:"streamCut,omitempty"`

	// Result overrides
	FinishReason string      `json:"finishReason,omitempty" yaml:"finishReason,omitempty"`
	TokenUsage   *TokenUsage `json:"tokenUsage,omitempty" yaml:"tokenUsage,omitempty"`

	// OnEvent receives every event fired under this config. It is the only
	// field shared by reference between copies.
	OnEvent func(Event) `json:"-" yaml:"-"`
}

// Clone returns a copy that shares nothing mutable with c except OnEvent.
func (c Config) Clone() Config {
	out := c
	if c.StatusCodes != nil {
		out.StatusCodes = append([]int(nil), c.StatusCodes...)
	}
	if c.TokenUsage != nil {
		u := *c.TokenUsage
		out.TokenUsage = &u
	}
	return out
}

// IsZero reports whether no knob is set.
func (c Config) IsZero() bool {
	return !c.Disabled && c.equalZero()
}

func (c Config) equalZero() bool {
	return c.Fail == 0 && c.FailMessage == "" && c.Timeout == 0 &&
		c.Delay.IsZero() && c.Jitter == 0 && c.Spike.IsZero() && c.Corrupt == 0 &&
		c.PacketLoss == 0 && c.Disconnect == 0 && c.DNS == 0 && c.Offline == 0 &&
		c.Status == 0 && len(c.StatusCodes) == 0 && c.RateLimit == (RateLimitKnob{}) &&
		c.Overloaded == 0 && c.ContextLength == 0 && c.ContentFilter == 0 &&
		c.ModelUnavailable == 0 && c.InvalidAPIKey == 0 && c.QuotaExceeded == 0 &&
		c.EmptyResponse == 0 && c.PartialResponse == 0 && c.ToolFailure == 0 &&
		c.ToolTimeout == 0 && c.SlowTokens.IsZero() && c.CorruptChunks == 0 &&
		c.StreamCut == 0 && c.FinishReason == "" && c.TokenUsage == nil
}

// Merge overlays over onto base. Every knob set in over replaces the base
// value; unset knobs keep the base value.
func Merge(base, over Config) Config {
	out := base.Clone()
	over = over.Clone()

	out.Disabled = base.Disabled || over.Disabled
	mergeFloat(&out.Fail, over.Fail)
	mergeString(&out.FailMessage, over.FailMessage)
	mergeFloat(&out.Timeout, over.Timeout)
	mergeRange(&out.Delay, over.Delay)
	if over.Jitter != 0 {
		out.Jitter = over.Jitter
	}
	mergeRange(&out.Spike, over.Spike)
	mergeFloat(&out.Corrupt, over.Corrupt)

	mergeFloat(&out.PacketLoss, over.PacketLoss)
	mergeFloat(&out.Disconnect, over.Disconnect)
	mergeFloat(&out.DNS, over.DNS)
	mergeFloat(&out.Offline, over.Offline)

	mergeFloat(&out.Status, over.Status)
	if len(over.StatusCodes) > 0 {
		out.StatusCodes = over.StatusCodes
	}
	if over.RateLimit != (RateLimitKnob{}) {
		out.RateLimit = over.RateLimit
	}

	mergeFloat(&out.Overloaded, over.Overloaded)
	mergeFloat(&out.ContextLength, over.ContextLength)
	mergeFloat(&out.ContentFilter, over.ContentFilter)
	mergeFloat(&out.ModelUnavailable, over.ModelUnavailable)
	mergeFloat(&out.InvalidAPIKey, over.InvalidAPIKey)
	mergeFloat(&out.QuotaExceeded, over.QuotaExceeded)
	mergeFloat(&out.EmptyResponse, over.EmptyResponse)
	mergeFloat(&out.PartialResponse, over.PartialResponse)
	mergeFloat(&out.ToolFailure, over.ToolFailure)
	mergeFloat(&out.ToolTimeout, over.ToolTimeout)

	mergeRange(&out.SlowTokens, over.SlowTokens)
	mergeFloat(&out.CorruptChunks, over.CorruptChunks)
	mergeFloat(&out.StreamCut, over.StreamCut)

	mergeString(&out.FinishReason, over.FinishReason)
	if over.TokenUsage != nil {
		out.TokenUsage = over.TokenUsage
	}
	if over.OnEvent != nil {
		out.OnEvent = over.OnEvent
	}
	return out
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeRange(dst *Range, v Range) {
	if !v.IsZero() {
		*dst = v
	}
}

// Validate reports negative probabilities, inverted ranges and status codes
// outside 100-599.
func (c Config) Validate() error {
	probs := []struct {
		name string
		v    float64
	}{
		{"fail", c.Fail},
		{"timeout", c.Timeout},
		{"corrupt", c.Corrupt},
		{"packetLoss", c.PacketLoss},
		{"disconnect", c.Disconnect},
		{"dns", c.DNS},
		{"offline", c.Offline},
		{"status", c.Status},
		{"rateLimit.rate", c.RateLimit.Rate},
		{"overloaded", c.Overloaded},
		{"contextLength", c.ContextLength},
		{"contentFilter", c.ContentFilter},
		{"modelUnavailable", c.ModelUnavailable},
		{"invalidApiKey", c.InvalidAPIKey},
		{"quotaExceeded", c.QuotaExceeded},
		{"emptyResponse", c.EmptyResponse},
		{"partialResponse", c.PartialResponse},
		{"toolFailure", c.ToolFailure},
		{"toolTimeout", c.ToolTimeout},
		{"corruptChunks", c.CorruptChunks},
		{"streamCut", c.StreamCut},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrInvalidConfig, p.name, p.v)
		}
	}

	ranges := []struct {
		name string
		r    Range
	}{
		{"delay", c.Delay},
		{"spike", c.Spike},
		{"slowTokens", c.SlowTokens},
	}
	for _, r := range ranges {
		if r.r.Min < 0 || r.r.Max < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, r.name)
		}
		if r.r.Max > 0 && r.r.Max < r.r.Min {
			return fmt.Errorf("%w: %s max %s is below min %s", ErrInvalidConfig, r.name, r.r.Max, r.r.Min)
		}
	}

	if c.Jitter < 0 {
		return fmt.Errorf("%w: jitter must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.RetryAfter < 0 {
		return fmt.Errorf("%w: rateLimit.retryAfter must not be negative", ErrInvalidConfig)
	}
	for _, code := range c.StatusCodes {
		if code < 100 || code > 599 {
			return fmt.Errorf("%w: status code %d out of range", ErrInvalidConfig, code)
		}
	}
	return nil
}
