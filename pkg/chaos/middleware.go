package chaos

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/random"
)

// InterceptRule applies Config to outgoing requests whose URL matches.
// Pattern matches as a substring; Regexp, when set, takes precedence.
type InterceptRule struct {
	Pattern string
	Regexp  *regexp.Regexp
	Config  Config
}

func (r InterceptRule) matches(url string) bool {
	if r.Regexp != nil {
		return r.Regexp.MatchString(url)
	}
	return r.Pattern != "" && strings.Contains(url, r.Pattern)
}

// Intercept adds a substring rule for outgoing HTTP requests.
func (e *Engine) Intercept(pattern string, cfg Config) {
	e.addIntercept(InterceptRule{Pattern: pattern, Config: cfg.Clone()})
}

// InterceptRegexp adds a regular expression rule for outgoing HTTP requests.
func (e *Engine) InterceptRegexp(re *regexp.Regexp, cfg Config) {
	e.addIntercept(InterceptRule{Regexp: re, Config: cfg.Clone()})
}

func (e *Engine) addIntercept(rule InterceptRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intercepts = append(e.intercepts, rule)
}

// ClearIntercepts removes every intercept rule.
func (e *Engine) ClearIntercepts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intercepts = nil
}

// Intercepts returns a copy of the intercept rules.
func (e *Engine) Intercepts() []InterceptRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]InterceptRule, len(e.intercepts))
	copy(out, e.intercepts)
	return out
}

// Transport is an http.RoundTripper that applies the engine's intercept
// rules before delegating to Base.
type Transport struct {
	Base   http.RoundTripper
	Engine *Engine
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(e *Engine, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Engine: e}
}

// RoundTrip implements http.RoundTripper. For each matching rule a hang,
// a connection failure, a 429 or an injected status may short-circuit the
// request; otherwise the rule's delay is applied.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	e := t.Engine
	if e == nil {
		e = Default()
	}
	ctx := req.Context()
	url := req.URL.String()
	reset := e.Done()

	for _, rule := range e.Intercepts() {
		if !rule.matches(url) {
			continue
		}
		cfg := rule.Config

		if e.rng.Chance(cfg.Timeout) {
			e.Fire(ctx, cfg, Event{Type: EventTimeout, Target: url})
			closeBody(req)
			return nil, hangUntil(ctx, reset)
		}

		if e.rng.Chance(cfg.Fail) {
			f := fault.New(fault.CodeFailure, "fetch failed", fault.WithRetryable(true))
			e.Fire(ctx, cfg, Event{Type: EventFail, Target: url, Err: f})
			closeBody(req)
			return nil, f
		}

		if e.rng.Chance(cfg.RateLimit.Rate) {
			retryAfter := cfg.RateLimit.RetryAfter
			if retryAfter <= 0 {
				retryAfter = fault.DefaultAIRetryAfter
			}
			e.Fire(ctx, cfg, Event{Type: EventRateLimit, Target: url, Status: http.StatusTooManyRequests})
			resp := syntheticResponse(req, http.StatusTooManyRequests, "rate limited")
			resp.Header.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			closeBody(req)
			return resp, nil
		}

		if len(cfg.StatusCodes) > 0 {
			rate := cfg.Status
			if rate == 0 {
				rate = 1
			}
			if e.rng.Chance(rate) {
				status, _ := random.Pick(e.rng, cfg.StatusCodes)
				e.Fire(ctx, cfg, Event{Type: EventStatus, Target: url, Status: status})
				closeBody(req)
				return syntheticResponse(req, status, fmt.Sprintf("http %d", status)), nil
			}
		}

		if d := cfg.Delay.Draw(e.rng); d > 0 {
			e.Fire(ctx, cfg, Event{Type: EventDelay, Target: url, Delay: d})
			if err := sleepUntil(ctx, d, reset); err != nil {
				closeBody(req)
				return nil, err
			}
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// closeBody releases the request body on paths that never reach Base.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

func syntheticResponse(req *http.Request, status int, message string) *http.Response {
	body, _ := json.Marshal(map[string]string{"error": message})
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(string(body))),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// PatchDefaultTransport replaces http.DefaultTransport with a Transport
// bound to e. Reset and UnpatchDefaultTransport restore the original.
func (e *Engine) PatchDefaultTransport() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.patched {
		return
	}
	e.origTransport = http.DefaultTransport
	http.DefaultTransport = NewTransport(e, e.origTransport)
	e.patched = true
}

// UnpatchDefaultTransport restores http.DefaultTransport.
func (e *Engine) UnpatchDefaultTransport() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unpatchLocked()
}

func (e *Engine) unpatchLocked() {
	if !e.patched {
		return
	}
	http.DefaultTransport = e.origTransport
	e.origTransport = nil
	e.patched = false
}
