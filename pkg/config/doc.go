// Package config loads chaos and resilience settings from YAML files and the
// environment.
//
// A configuration file mirrors the engine's settings:
//
//	enabled: true
//	seed: 42
//	logging:
//	  level: debug
//	  format: json
//	chaos:
//	  fail: 0.1
//	  delay: 50ms-200ms
//	profiles:
//	  flaky:
//	    fail: 0.3
//	intercepts:
//	  - pattern: api.example.com
//	    config:
//	      status: 1
//	      statusCodes: [503]
//	resilience:
//	  retry:
//	    attempts: 3
//	    delay: 100ms
//	    backoff: exponential
//	    retryIf: Retryable && Status != 401
//	  circuitBreaker:
//	    threshold: 5
//	    cooldown: 30s
//
// Load reads a file, ApplyEnv overlays MAYHEM_* variables and Apply pushes
// the result into an engine:
//
//	f, err := config.Load("mayhem.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f.ApplyEnv()
//	if err := f.Apply(chaos.Default()); err != nil {
//	    log.Fatal(err)
//	}
//
// The retryIf expression is compiled when the file is parsed and evaluated
// against the failed call's fault: Code, Status, Retryable, Message and
// RetryAfter (seconds).
package config
