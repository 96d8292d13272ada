// Package chaostest provides helpers for testing code under fault injection.
//
// # Basic Usage
//
// A Harness owns a seeded engine bound to the test and records every event
// it emits:
//
//	func TestCheckout(t *testing.T) {
//	    h := chaostest.New(t, chaostest.WithSeed(7))
//	    h.Enable(chaos.Config{Fail: 1})
//
//	    charge := chaos.Wrap(client.Charge, chaos.Config{}, chaos.WithEngine(h.Engine()))
//	    _, err := charge(ctx, req)
//
//	    chaostest.AssertCode(t, err, fault.CodeFailure)
//	    h.AssertEvent(t, chaos.EventFail)
//	}
//
// The engine is reset when the test ends, waking any call still blocked on
// a hang.
//
// # HTTP
//
// Server starts an httptest server and Client returns an http.Client whose
// transport applies the harness engine's intercept rules:
//
//	url := h.Server(handler)
//	h.Intercept(url, chaos.Config{Status: 1, StatusCodes: []int{503}})
//	resp, err := h.Client().Get(url + "/health")
//
// # Fault Assertions
//
// AssertFault, AssertCode, AssertStatus, AssertRetryable and
// AssertNetworkFault inspect an error chain for a *fault.Fault. RequireHangs
// checks that an operation blocks until its context expires.
package chaostest
