package chaos

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/random"
)

// Func is the shape of every operation the toolkit wraps.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// DefaultTarget labels wrapped operations that were given no target.
const DefaultTarget = "fn"

type wrapOptions struct {
	engine   *Engine
	target   string
	provider bool
}

// Option configures Wrap.
type Option func(*wrapOptions)

// WithEngine binds the wrapper to e instead of the Default engine.
func WithEngine(e *Engine) Option {
	return func(o *wrapOptions) {
		o.engine = e
	}
}

// WithTarget sets the label used in events and per-target statistics.
func WithTarget(name string) Option {
	return func(o *wrapOptions) {
		o.target = name
	}
}

// WithProviderFaults raises model-provider shaped faults for the rate
// limit and generic failure knobs.
func WithProviderFaults() Option {
	return func(o *wrapOptions) {
		o.provider = true
	}
}

// Binding is what a set of Options resolves to. Packages that inject chaos
// outside Wrap use it to fire events against the same engine and target.
type Binding struct {
	Engine         *Engine
	Target         string
	ProviderFaults bool
}

// Bind resolves opts, defaulting to the Default engine and DefaultTarget.
func Bind(opts ...Option) Binding {
	o := resolveOptions(opts)
	return Binding{Engine: o.engine, Target: o.target, ProviderFaults: o.provider}
}

func resolveOptions(opts []Option) wrapOptions {
	o := wrapOptions{target: DefaultTarget}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = Default()
	}
	if o.target == "" {
		o.target = DefaultTarget
	}
	return o
}

// Wrap returns an operation with the signature of op that injects chaos
// according to cfg merged over the engine's active config.
//
// A firing timeout knob makes the call hang: it returns only when ctx
// ends or the engine is reset. Callers observe a hang by bounding the call
// with their own deadline.
//
// cfg is copied; later changes to the caller's value have no effect, with
// the exception of the OnEvent callback.
func Wrap[In, Out any](op Func[In, Out], cfg Config, opts ...Option) Func[In, Out] {
	o := resolveOptions(opts)
	cfg = cfg.Clone()

	return func(ctx context.Context, in In) (Out, error) {
		e := o.engine
		eff := e.Effective(cfg)
		if eff.Disabled {
			return op(ctx, in)
		}

		start := time.Now()
		e.Emit(ctx, Event{Type: EventCall, Target: o.target})

		hung, err := e.inject(ctx, eff, o)
		if err != nil {
			if !hung {
				e.RecordCall(ctx, o.target, time.Since(start), err)
			}
			var zero Out
			return zero, err
		}

		out, err := op(ctx, in)
		if err != nil {
			e.RecordCall(ctx, o.target, time.Since(start), err)
			return out, err
		}

		out = corruptResult(ctx, e, eff, o.target, out)
		e.RecordCall(ctx, o.target, time.Since(start), nil)
		return out, nil
	}
}

type failureKnob struct {
	rate  float64
	event EventType
	fault func() *fault.Fault
}

// inject evaluates the failure knobs in priority order, then the delay. It
// reports hung when the timeout knob fired; the call is already counted in
// that case.
func (e *Engine) inject(ctx context.Context, cfg Config, o wrapOptions) (hung bool, err error) {
	reset := e.Done()
	knobs := []failureKnob{
		{cfg.InvalidAPIKey, EventInvalidAPIKey, fault.AIInvalidAPIKey},
		{cfg.QuotaExceeded, EventQuotaExceeded, fault.AIQuotaExceeded},
		{cfg.ModelUnavailable, EventModelUnavailable, func() *fault.Fault { return fault.AIModelUnavailable(o.target) }},
		{cfg.ContextLength, EventContextLength, fault.AIContextLength},
		{cfg.ContentFilter, EventContentFilter, fault.AIContentFilter},
		{cfg.EmptyResponse, EventEmptyResponse, fault.AIEmptyResponse},
		{cfg.RateLimit.Rate, EventRateLimit, func() *fault.Fault { return rateLimitFault(cfg.RateLimit, o.provider) }},
		{cfg.Overloaded, EventOverloaded, fault.AIOverloaded},
		{cfg.Offline, EventOffline, fault.Offline},
		{cfg.DNS, EventDNS, fault.DNS},
		{cfg.Disconnect, EventDisconnect, fault.Disconnect},
		{cfg.PacketLoss, EventPacketLoss, fault.PacketLoss},
		{cfg.Status, EventStatus, func() *fault.Fault { return statusFault(e.rng, cfg.StatusCodes) }},
		{cfg.Fail, EventFail, func() *fault.Fault { return failFault(cfg.FailMessage, o.provider) }},
	}

	for _, k := range knobs {
		if !e.rng.Chance(k.rate) {
			continue
		}
		f := k.fault()
		e.Fire(ctx, cfg, Event{Type: k.event, Target: o.target, Status: f.StatusCode, Err: f})
		return false, f
	}

	if e.rng.Chance(cfg.Timeout) {
		e.Fire(ctx, cfg, Event{Type: EventTimeout, Target: o.target})
		e.RecordCall(ctx, o.target, -1, fault.ErrTimeout)
		return true, hangUntil(ctx, reset)
	}

	delay := cfg.Delay.Draw(e.rng)
	if cfg.Jitter > 0 {
		delay += e.rng.DurationBetween(0, cfg.Jitter)
	}
	delay += cfg.Spike.Draw(e.rng)
	if delay <= 0 {
		return false, nil
	}
	e.Fire(ctx, cfg, Event{Type: EventDelay, Target: o.target, Delay: delay})
	return false, sleepUntil(ctx, delay, reset)
}

func rateLimitFault(k RateLimitKnob, provider bool) *fault.Fault {
	if provider {
		return fault.AIRateLimit(k.RetryAfter)
	}
	retryAfter := k.RetryAfter
	if retryAfter <= 0 {
		retryAfter = fault.DefaultAIRetryAfter
	}
	return fault.RateLimit(retryAfter)
}

func statusFault(src *random.Source, codes []int) *fault.Fault {
	status, ok := random.Pick(src, codes)
	if !ok {
		status = 500
	}
	return fault.HTTP(status)
}

func failFault(message string, provider bool) *fault.Fault {
	if provider {
		if message == "" {
			message = "Generation failed"
		}
		return fault.New(fault.CodeFailure, message, fault.WithStatus(500))
	}
	return fault.Failure(message)
}

func corruptResult[Out any](ctx context.Context, e *Engine, cfg Config, target string, out Out) Out {
	s, ok := any(out).(string)
	if !ok || s == "" || !e.rng.Chance(cfg.Corrupt) {
		return out
	}
	e.Fire(ctx, cfg, Event{Type: EventCorrupt, Target: target})
	corrupted, _ := any(CorruptText(e.rng, s)).(Out)
	return corrupted
}

// CorruptText replaces one uniformly chosen code point of s with U+FFFD.
// The empty string is returned unchanged.
func CorruptText(src *random.Source, s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[src.Intn(len(runes))] = utf8.RuneError
	return string(runes)
}
