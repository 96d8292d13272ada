package chaos

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/getmockd/mayhem/pkg/fault"
)

func echo(_ context.Context, in string) (string, error) {
	return in, nil
}

func counting(calls *atomic.Int32) Func[string, string] {
	return func(_ context.Context, in string) (string, error) {
		calls.Add(1)
		return in, nil
	}
}

func TestWrap_PassThrough(t *testing.T) {
	e := NewEngine()
	wrapped := Wrap(echo, Config{}, WithEngine(e), WithTarget("echo"))

	got, err := wrapped(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want hello", got)
	}

	stats := e.Stats()
	if stats.Calls != 1 || stats.Failures != 0 {
		t.Errorf("stats = %+v, want 1 call and no failures", stats)
	}
	if stats.ByTarget["echo"].Calls != 1 {
		t.Errorf("ByTarget[echo].Calls = %d, want 1", stats.ByTarget["echo"].Calls)
	}
}

func TestWrap_PriorityOrder(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		want   fault.Code
		status int
	}{
		{
			name: "invalid key beats everything",
			cfg:  Config{InvalidAPIKey: 1, QuotaExceeded: 1, Fail: 1, Timeout: 1},
			want: fault.CodeAIInvalidAPIKey, status: 401,
		},
		{
			name: "quota before availability",
			cfg:  Config{QuotaExceeded: 1, ModelUnavailable: 1, Overloaded: 1},
			want: fault.CodeAIQuotaExceeded, status: 402,
		},
		{
			name: "model unavailable before context length",
			cfg:  Config{ModelUnavailable: 1, ContextLength: 1},
			want: fault.CodeAIModelUnavailable, status: 503,
		},
		{
			name: "content filter before empty response",
			cfg:  Config{ContentFilter: 1, EmptyResponse: 1},
			want: fault.CodeAIContentFilter, status: 400,
		},
		{
			name: "rate limit before overloaded",
			cfg:  Config{RateLimit: RateLimitKnob{Rate: 1}, Overloaded: 1},
			want: fault.CodeRateLimit, status: 429,
		},
		{
			name: "overloaded before network",
			cfg:  Config{Overloaded: 1, Offline: 1},
			want: fault.CodeAIOverloaded, status: 529,
		},
		{
			name: "offline before dns",
			cfg:  Config{Offline: 1, DNS: 1, Disconnect: 1, PacketLoss: 1},
			want: fault.CodeOffline,
		},
		{
			name: "packet loss before status",
			cfg:  Config{PacketLoss: 1, Status: 1},
			want: fault.CodePacketLoss,
		},
		{
			name: "status before fail",
			cfg:  Config{Status: 1, StatusCodes: []int{503}, Fail: 1},
			want: fault.CodeHTTP, status: 503,
		},
		{
			name: "fail before timeout",
			cfg:  Config{Fail: 1, Timeout: 1},
			want: fault.CodeFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			e := NewEngine()
			wrapped := Wrap(counting(&calls), tt.cfg, WithEngine(e))

			_, err := wrapped(context.Background(), "x")
			f, ok := fault.As(err)
			if !ok {
				t.Fatalf("error %v is not a fault", err)
			}
			if f.Code != tt.want {
				t.Errorf("code = %s, want %s", f.Code, tt.want)
			}
			if f.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", f.StatusCode, tt.status)
			}
			if calls.Load() != 0 {
				t.Errorf("operation invoked %d times, want 0", calls.Load())
			}
		})
	}
}

func TestWrap_StatusDefaultsTo500(t *testing.T) {
	e := NewEngine()
	wrapped := Wrap(echo, Config{Status: 1}, WithEngine(e))

	_, err := wrapped(context.Background(), "x")
	f, ok := fault.As(err)
	if !ok || f.StatusCode != 500 {
		t.Fatalf("err = %v, want HTTP 500 fault", err)
	}
	if !f.Retryable {
		t.Error("500 should be retryable")
	}
}

func TestWrap_ProviderFaults(t *testing.T) {
	e := NewEngine()

	rl := Wrap(echo, Config{RateLimit: RateLimitKnob{Rate: 1}}, WithEngine(e), WithProviderFaults())
	_, err := rl(context.Background(), "x")
	f, _ := fault.As(err)
	if f == nil || f.Code != fault.CodeAIRateLimit {
		t.Fatalf("err = %v, want AI rate limit", err)
	}
	if f.RetryAfter != 60*time.Second {
		t.Errorf("RetryAfter = %v, want 60s", f.RetryAfter)
	}

	fail := Wrap(echo, Config{Fail: 1}, WithEngine(e), WithProviderFaults())
	_, err = fail(context.Background(), "x")
	f, _ = fault.As(err)
	if f == nil || f.StatusCode != 500 || f.Message != "Generation failed" {
		t.Fatalf("err = %v, want 500 Generation failed", err)
	}
}

func TestWrap_ModelUnavailableCarriesTarget(t *testing.T) {
	e := NewEngine()
	wrapped := Wrap(echo, Config{ModelUnavailable: 1}, WithEngine(e), WithTarget("gpt-test"))

	_, err := wrapped(context.Background(), "x")
	f, _ := fault.As(err)
	if f == nil || f.Data["modelId"] != "gpt-test" {
		t.Fatalf("err = %v, want model id gpt-test", err)
	}
}

func TestWrap_TimeoutHangs(t *testing.T) {
	var calls atomic.Int32
	e := NewEngine()
	wrapped := Wrap(counting(&calls), Config{Timeout: 1}, WithEngine(e))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := wrapped(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Error("hang returned before the deadline")
	}
	if calls.Load() != 0 {
		t.Error("operation should not run when the call hangs")
	}

	stats := e.Stats()
	if stats.Timeouts != 1 || stats.Failures != 1 || stats.Calls != 1 {
		t.Errorf("stats = %+v, want 1 call, 1 failure, 1 timeout", stats)
	}
	if stats.Latency.Count != 0 {
		t.Errorf("hung call recorded %d latency samples, want 0", stats.Latency.Count)
	}
}

func TestWrap_HangReleasedByReset(t *testing.T) {
	e := NewEngine()
	fired := make(chan struct{}, 1)
	wrapped := Wrap(echo, Config{
		Timeout: 1,
		OnEvent: func(ev Event) {
			if ev.Type == EventTimeout {
				fired <- struct{}{}
			}
		},
	}, WithEngine(e))

	done := make(chan error, 1)
	go func() {
		_, err := wrapped(context.Background(), "x")
		done <- err
	}()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout knob did not fire")
	}
	e.Reset()

	select {
	case err := <-done:
		if !errors.Is(err, fault.ErrReset) {
			t.Errorf("err = %v, want ErrReset", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hang was not released by Reset")
	}
}

func TestWrap_Delay(t *testing.T) {
	e := NewEngine()
	var events []Event
	e.On(func(ev Event) {
		if ev.Type == EventDelay {
			events = append(events, ev)
		}
	})
	wrapped := Wrap(echo, Config{Delay: Fixed(30 * time.Millisecond)}, WithEngine(e), WithTarget("slow"))

	start := time.Now()
	if _, err := wrapped(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("elapsed %v, want >= 30ms", elapsed)
	}
	if len(events) != 1 || events[0].Delay != 30*time.Millisecond || events[0].Target != "slow" {
		t.Errorf("delay events = %+v", events)
	}
	if e.Stats().Delays != 1 {
		t.Errorf("Delays = %d, want 1", e.Stats().Delays)
	}
}

func TestWrap_DelayAdditive(t *testing.T) {
	e := NewEngine()
	var got time.Duration
	wrapped := Wrap(echo, Config{
		Delay:   Fixed(5 * time.Millisecond),
		Spike:   Fixed(10 * time.Millisecond),
		OnEvent: func(ev Event) { got = ev.Delay },
	}, WithEngine(e))

	if _, err := wrapped(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 15*time.Millisecond {
		t.Errorf("delay = %v, want 15ms", got)
	}
}

func TestWrap_DelayCancelled(t *testing.T) {
	var calls atomic.Int32
	e := NewEngine()
	wrapped := Wrap(counting(&calls), Config{Delay: Fixed(time.Second)}, WithEngine(e))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := wrapped(ctx, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if calls.Load() != 0 {
		t.Error("operation should not run after a cancelled delay")
	}
}

func TestWrap_Corrupt(t *testing.T) {
	e := NewEngine()
	wrapped := Wrap(echo, Config{Corrupt: 1}, WithEngine(e))

	got, err := wrapped(context.Background(), "héllo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utf8.RuneCountInString(got) != 5 {
		t.Errorf("rune count = %d, want 5", utf8.RuneCountInString(got))
	}
	if strings.Count(got, "�") != 1 {
		t.Errorf("got %q, want exactly one replacement character", got)
	}

	empty, _ := wrapped(context.Background(), "")
	if empty != "" {
		t.Errorf("empty input corrupted to %q", empty)
	}

	if e.Stats().Corrupted != 1 {
		t.Errorf("Corrupted = %d, want 1", e.Stats().Corrupted)
	}
}

func TestWrap_CorruptIgnoresNonStrings(t *testing.T) {
	e := NewEngine()
	op := func(_ context.Context, n int) (int, error) { return n * 2, nil }
	wrapped := Wrap(op, Config{Corrupt: 1}, WithEngine(e))

	got, err := wrapped(context.Background(), 21)
	if err != nil || got != 42 {
		t.Errorf("got %d, %v; want 42, nil", got, err)
	}
}

func TestWrap_OperationError(t *testing.T) {
	e := NewEngine()
	boom := errors.New("boom")
	op := func(context.Context, string) (string, error) { return "", boom }
	wrapped := Wrap(op, Config{}, WithEngine(e), WithTarget("op"))

	_, err := wrapped(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if got := e.Stats().ByTarget["op"].Failures; got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
}

func TestWrap_Deterministic(t *testing.T) {
	cfg := Config{
		Fail:        0.3,
		Status:      0.2,
		StatusCodes: []int{500, 502, 503},
		Jitter:      2 * time.Millisecond,
	}

	run := func() []string {
		e := NewEngine(WithSeed(42))
		var trace []string
		c := cfg
		c.OnEvent = func(ev Event) {
			trace = append(trace, string(ev.Type)+ev.Delay.String())
		}
		wrapped := Wrap(echo, c, WithEngine(e))
		for i := 0; i < 40; i++ {
			_, err := wrapped(context.Background(), "x")
			trace = append(trace, string(fault.CodeOf(err)))
		}
		return trace
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("trace lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("traces diverge at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestWrap_GlobalConfigMerged(t *testing.T) {
	e := NewEngine()
	e.Enable(Config{Fail: 1})

	wrapped := Wrap(echo, Config{}, WithEngine(e))
	if _, err := wrapped(context.Background(), "x"); !errors.Is(err, fault.ErrFailure) {
		t.Errorf("err = %v, want global fail", err)
	}

	bypass := Wrap(echo, Config{Disabled: true}, WithEngine(e))
	if _, err := bypass(context.Background(), "x"); err != nil {
		t.Errorf("disabled wrapper err = %v, want nil", err)
	}

	e.Disable()
	if _, err := wrapped(context.Background(), "x"); err != nil {
		t.Errorf("err after Disable = %v, want nil", err)
	}
}

func TestWrap_ConfigCopied(t *testing.T) {
	e := NewEngine()
	cfg := Config{StatusCodes: []int{503}, Status: 1}
	wrapped := Wrap(echo, cfg, WithEngine(e))
	cfg.StatusCodes[0] = 404

	_, err := wrapped(context.Background(), "x")
	f, _ := fault.As(err)
	if f == nil || f.StatusCode != 503 {
		t.Errorf("err = %v, want 503 from the copied config", err)
	}
}

func TestOverlays(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	tests := []struct {
		name string
		op   Func[string, string]
		want fault.Code
	}{
		{"Fail", Fail(echo, 1, WithEngine(e)), fault.CodeFailure},
		{"Offline", Offline(echo, WithEngine(e)), fault.CodeOffline},
		{"PacketLoss", PacketLoss(echo, 1, WithEngine(e)), fault.CodePacketLoss},
		{"Disconnect", Disconnect(echo, 1, WithEngine(e)), fault.CodeDisconnect},
		{"DNSFailure", DNSFailure(echo, 1, WithEngine(e)), fault.CodeDNS},
		{"ServerError", ServerError(echo, 1, WithEngine(e)), fault.CodeHTTP},
		{"RateLimited", RateLimited(echo, 1, 5*time.Second, WithEngine(e)), fault.CodeRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op(ctx, "x")
			if got := fault.CodeOf(err); got != tt.want {
				t.Errorf("code = %s, want %s", got, tt.want)
			}
		})
	}

	_, err := BadGateway(echo, 1, WithEngine(e))(ctx, "x")
	if f, _ := fault.As(err); f == nil || f.StatusCode != 502 {
		t.Errorf("BadGateway err = %v", err)
	}

	_, err = RateLimited(echo, 1, 5*time.Second, WithEngine(e))(ctx, "x")
	if f, _ := fault.As(err); f == nil || f.RetryAfter != 5*time.Second {
		t.Errorf("RateLimited err = %v, want retry-after 5s", err)
	}
}

func TestCorruptText(t *testing.T) {
	e := NewEngine(WithSeed(1))
	if got := CorruptText(e.Random(), ""); got != "" {
		t.Errorf("CorruptText(\"\") = %q", got)
	}
	got := CorruptText(e.Random(), "a")
	if got != "�" {
		t.Errorf("CorruptText(a) = %q", got)
	}
}
