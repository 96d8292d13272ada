// Package chaos provides fault injection for arbitrary operations.
//
// Any operation of the shape func(ctx, In) (Out, error) can be wrapped so
// that calls probabilistically fail, hang, slow down or return corrupted
// output. Decisions come from a seedable random source, so a test that
// seeds the engine sees the same faults on every run.
//
// # Wrapping
//
//	fetch := chaos.Wrap(client.Fetch, chaos.Config{
//	    Fail:   0.1,
//	    Delay:  chaos.Between(50*time.Millisecond, 200*time.Millisecond),
//	    Jitter: 20 * time.Millisecond,
//	}, chaos.WithTarget("fetch"))
//
// Failure knobs are evaluated in a fixed priority order and at most one
// fires per call. Provider faults (invalid key, quota, model unavailable,
// context length, content filter, empty response, rate limit, overloaded)
// come first, then network faults, injected HTTP statuses, the generic
// failure and finally the timeout knob. Delays apply only when nothing
// fired.
//
// # Hangs
//
// The timeout knob does not return a timeout error. It models an upstream
// that never answers: the call blocks until its context ends or the engine
// is reset. Bound such calls with a deadline to observe the hang:
//
//	ctx, cancel := context.WithTimeout(ctx, time.Second)
//	defer cancel()
//	_, err := hanging(ctx, req) // context.DeadlineExceeded
//
// # Engine
//
// An Engine holds the global state consulted on every call: the enable
// flag and active config, named profiles and scenarios, HTTP intercept
// rules, listeners and statistics. Default returns the process-wide
// engine; tests should create their own with NewEngine and bind wrappers
// to it with WithEngine.
//
//	e := chaos.NewEngine(chaos.WithSeed(42))
//	e.Enable(chaos.Config{Fail: 0.2})
//	err := e.Scope(chaos.Config{Offline: 1}, func() error {
//	    _, err := wrapped(ctx, req)
//	    return err
//	})
//
// Reset clears everything, including builtin scenarios, and wakes pending
// sleeps and hangs with fault.ErrReset.
//
// # HTTP
//
// Transport applies intercept rules to outgoing requests. PatchDefaultTransport
// installs it as http.DefaultTransport until Reset or
// UnpatchDefaultTransport.
package chaos
