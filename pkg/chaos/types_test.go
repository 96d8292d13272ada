package chaos

import (
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/mayhem/pkg/random"
)

func TestRange_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Range
		wantErr bool
	}{
		{name: "fixed", input: "250ms", want: Fixed(250 * time.Millisecond)},
		{name: "dash range", input: "100ms-500ms", want: Between(100*time.Millisecond, 500*time.Millisecond)},
		{name: "dash range with spaces", input: `"1s - 2s"`, want: Between(time.Second, 2*time.Second)},
		{name: "sequence", input: "[50ms, 2s]", want: Between(50*time.Millisecond, 2*time.Second)},
		{name: "bad duration", input: "soon", wantErr: true},
		{name: "short sequence", input: "[1s]", wantErr: true},
		{name: "mapping", input: "{min: 1s}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Range
			err := yaml.Unmarshal([]byte(tt.input), &r)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r != tt.want {
				t.Errorf("got %+v, want %+v", r, tt.want)
			}
		})
	}
}

func TestRange_Draw(t *testing.T) {
	src := random.NewSeeded(9)
	if d := (Range{}).Draw(src); d != 0 {
		t.Errorf("zero range drew %v", d)
	}
	if d := Fixed(time.Second).Draw(src); d != time.Second {
		t.Errorf("fixed range drew %v", d)
	}

	r := Between(10*time.Millisecond, 20*time.Millisecond)
	for i := 0; i < 200; i++ {
		d := r.Draw(src)
		if d < r.Min || d > r.Max {
			t.Fatalf("draw %v outside %v", d, r)
		}
	}
	if r.String() != "10ms-20ms" {
		t.Errorf("String = %q", r.String())
	}
}

func TestConfig_UnmarshalYAML(t *testing.T) {
	doc := `
fail: 0.1
delay: 100ms-200ms
jitter: 50ms
rateLimit: 0.2
statusCodes: [500, 503]
tokenUsage:
  outputTokens: 7
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Fail != 0.1 || cfg.Jitter != 50*time.Millisecond {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Delay != Between(100*time.Millisecond, 200*time.Millisecond) {
		t.Errorf("delay = %+v", cfg.Delay)
	}
	if cfg.RateLimit.Rate != 0.2 || cfg.RateLimit.RetryAfter != 0 {
		t.Errorf("rateLimit = %+v", cfg.RateLimit)
	}
	if len(cfg.StatusCodes) != 2 || cfg.StatusCodes[1] != 503 {
		t.Errorf("statusCodes = %v", cfg.StatusCodes)
	}
	if cfg.TokenUsage == nil || cfg.TokenUsage.OutputTokens == nil || *cfg.TokenUsage.OutputTokens != 7 {
		t.Errorf("tokenUsage = %+v", cfg.TokenUsage)
	}

	var full Config
	if err := yaml.Unmarshal([]byte("rateLimit: {rate: 1, retryAfter: 5s}"), &full); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if full.RateLimit != (RateLimitKnob{Rate: 1, RetryAfter: 5 * time.Second}) {
		t.Errorf("rateLimit = %+v", full.RateLimit)
	}
}

func TestMerge(t *testing.T) {
	var fired bool
	base := Config{Fail: 0.5, Delay: Fixed(time.Second), StatusCodes: []int{500}}
	over := Config{Fail: 0.1, Offline: 1, OnEvent: func(Event) { fired = true }}

	got := Merge(base, over)
	if got.Fail != 0.1 {
		t.Errorf("Fail = %v, want override", got.Fail)
	}
	if got.Delay != Fixed(time.Second) {
		t.Errorf("Delay = %v, want base value", got.Delay)
	}
	if got.Offline != 1 {
		t.Errorf("Offline = %v", got.Offline)
	}
	if len(got.StatusCodes) != 1 || got.StatusCodes[0] != 500 {
		t.Errorf("StatusCodes = %v", got.StatusCodes)
	}
	got.OnEvent(Event{})
	if !fired {
		t.Error("OnEvent should come from the override")
	}

	got.StatusCodes[0] = 404
	if base.StatusCodes[0] != 500 {
		t.Error("Merge shares StatusCodes with base")
	}

	if !Merge(Config{}, Config{Disabled: true}).Disabled {
		t.Error("Disabled should carry through Merge")
	}
}

func TestConfig_IsZero(t *testing.T) {
	if !(Config{}).IsZero() {
		t.Error("empty config should be zero")
	}
	if (Config{Disabled: true}).IsZero() {
		t.Error("disabled config is not zero")
	}
	if (Config{SlowTokens: Fixed(time.Millisecond)}).IsZero() {
		t.Error("slowTokens config is not zero")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty", cfg: Config{}},
		{name: "probability of one", cfg: Config{Fail: 1, Timeout: 1}},
		{name: "probability above one", cfg: Config{Fail: 3}, wantErr: true},
		{name: "provider knob above one", cfg: Config{StreamCut: 1.5}, wantErr: true},
		{name: "negative probability", cfg: Config{Fail: -0.1}, wantErr: true},
		{name: "negative rate limit", cfg: Config{RateLimit: RateLimitKnob{Rate: -1}}, wantErr: true},
		{name: "inverted range", cfg: Config{Delay: Between(time.Second, time.Millisecond)}, wantErr: true},
		{name: "negative range", cfg: Config{Spike: Fixed(-time.Second)}, wantErr: true},
		{name: "negative jitter", cfg: Config{Jitter: -time.Millisecond}, wantErr: true},
		{name: "bad status", cfg: Config{StatusCodes: []int{700}}, wantErr: true},
		{name: "good status", cfg: Config{StatusCodes: []int{100, 599}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("err = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    Range
		wantErr bool
	}{
		{"", Range{}, false},
		{"250ms", Fixed(250 * time.Millisecond), false},
		{"100ms - 1s", Between(100*time.Millisecond, time.Second), false},
		{"fast", Range{}, true},
		{"100ms-slow", Range{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRange(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
