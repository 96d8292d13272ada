package chaos

import (
	"context"
	"time"

	"github.com/getmockd/mayhem/pkg/random"
)

// Shorthand wrappers over Wrap. Each takes the same options as Wrap.

// Fail fails a share of calls with a generic fault.
func Fail[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Fail: rate}, opts...)
}

// Slow delays every call.
func Slow[In, Out any](op Func[In, Out], delay Range, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Delay: delay}, opts...)
}

// Hang makes a share of calls never settle.
func Hang[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Timeout: rate}, opts...)
}

// Flaky scales failures and hangs by intensity and adds moderate latency.
func Flaky[In, Out any](op Func[In, Out], intensity float64, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{
		Fail:    intensity * 0.5,
		Timeout: intensity * 0.25,
		Delay:   Between(100*time.Millisecond, time.Second),
	}, opts...)
}

// Unreliable is a fixed mix of frequent failures, hangs and slow calls.
func Unreliable[In, Out any](op Func[In, Out], opts ...Option) Func[In, Out] {
	return Wrap(op, Config{
		Fail:    0.3,
		Timeout: 0.1,
		Delay:   Between(200*time.Millisecond, 2*time.Second),
		Jitter:  500 * time.Millisecond,
	}, opts...)
}

// Nightmare fails half of all calls and hangs a fifth.
func Nightmare[In, Out any](op Func[In, Out], opts ...Option) Func[In, Out] {
	return Wrap(op, Config{
		Fail:    0.5,
		Timeout: 0.2,
		Delay:   Between(500*time.Millisecond, 5*time.Second),
		Jitter:  time.Second,
	}, opts...)
}

// Network overlays. Network faults carry no status code and are retryable.

// Latency adds a network delay.
func Latency[In, Out any](op Func[In, Out], delay Range, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Delay: delay}, opts...)
}

// PacketLoss drops a share of calls.
func PacketLoss[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{PacketLoss: rate}, opts...)
}

// Disconnect resets a share of connections.
func Disconnect[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Disconnect: rate}, opts...)
}

// DNSFailure fails a share of lookups.
func DNSFailure[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{DNS: rate}, opts...)
}

// Offline fails every call.
func Offline[In, Out any](op Func[In, Out], opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Offline: 1}, opts...)
}

// SlowNetwork adds one to five seconds of latency plus jitter.
func SlowNetwork[In, Out any](op Func[In, Out], opts ...Option) Func[In, Out] {
	return Wrap(op, Config{
		Delay:  Between(time.Second, 5*time.Second),
		Jitter: 2 * time.Second,
	}, opts...)
}

// UnstableNetwork disconnects, drops packets and adds latency.
func UnstableNetwork[In, Out any](op Func[In, Out], opts ...Option) Func[In, Out] {
	return Wrap(op, Config{
		Disconnect: 0.1,
		PacketLoss: 0.05,
		Delay:      Between(100*time.Millisecond, 2*time.Second),
	}, opts...)
}

// HTTP overlays. Faults carry the injected status code.

// Status fails a share of calls with a status picked from codes.
func Status[In, Out any](op Func[In, Out], codes []int, rate float64, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Status: rate, StatusCodes: codes}, opts...)
}

// RateLimited fails a share of calls with 429 and a retry-after hint.
func RateLimited[In, Out any](op Func[In, Out], rate float64, retryAfter time.Duration, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{RateLimit: RateLimitKnob{Rate: rate, RetryAfter: retryAfter}}, opts...)
}

// ServerError fails with 500, 502, 503 or 504.
func ServerError[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Status(op, []int{500, 502, 503, 504}, rate, opts...)
}

// ClientError fails with 400, 401, 403 or 404.
func ClientError[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Status(op, []int{400, 401, 403, 404}, rate, opts...)
}

// BadGateway fails with 502.
func BadGateway[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Status(op, []int{502}, rate, opts...)
}

// ServiceUnavailable fails with 503.
func ServiceUnavailable[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Status(op, []int{503}, rate, opts...)
}

// GatewayTimeout fails with 504.
func GatewayTimeout[In, Out any](op Func[In, Out], rate float64, opts ...Option) Func[In, Out] {
	return Status(op, []int{504}, rate, opts...)
}

// SlowResponse delays the response.
func SlowResponse[In, Out any](op Func[In, Out], delay Range, opts ...Option) Func[In, Out] {
	return Wrap(op, Config{Delay: delay}, opts...)
}

// Convenience draws against the Default engine.

// Maybe returns v with probability rate and the zero value otherwise.
func Maybe[T any](v T, rate float64) (T, bool) {
	if Default().rng.Chance(rate) {
		return v, true
	}
	var zero T
	return zero, false
}

// Coin reports whether an event with probability rate fires.
func Coin(rate float64) bool {
	return Default().rng.Chance(rate)
}

// Delay sleeps for a duration drawn from r on the Default engine.
func Delay(ctx context.Context, r Range) error {
	e := Default()
	return e.Sleep(ctx, r.Draw(e.rng))
}

// PickOne picks a uniform element on the Default engine.
func PickOne[T any](items []T) (T, bool) {
	return random.Pick(Default().rng, items)
}
