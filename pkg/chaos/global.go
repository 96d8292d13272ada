package chaos

import "context"

// Package-level helpers operating on the Default engine.

// Enable enables cfg on the Default engine.
func Enable(cfg Config) { Default().Enable(cfg) }

// Disable disables the Default engine.
func Disable() { Default().Disable() }

// Toggle flips the Default engine's enable flag.
func Toggle() bool { return Default().Toggle() }

// IsEnabled reports whether the Default engine is enabled.
func IsEnabled() bool { return Default().IsEnabled() }

// Configure applies settings to the Default engine.
func Configure(s Settings) { Default().Configure(s) }

// Seed seeds the Default engine.
func Seed(n int64) { Default().Seed(n) }

// Scope runs fn with cfg enabled on the Default engine.
func Scope(cfg Config, fn func() error) error { return Default().Scope(cfg, fn) }

// Profile registers a profile on the Default engine.
func Profile(name string, cfg Config) { Default().Profile(name, cfg) }

// UseProfile enables a profile on the Default engine.
func UseProfile(name string) error { return Default().UseProfile(name) }

// Play plays a scenario on the Default engine.
func Play(ctx context.Context, name string) error { return Default().Play(ctx, name) }

// Stop stops the Default engine's scenario.
func Stop() { Default().Stop() }

// On registers a listener on the Default engine.
func On(fn func(Event)) func() { return Default().On(fn) }

// GetStats returns the Default engine's statistics.
func GetStats() Stats { return Default().Stats() }

// ResetStats zeroes the Default engine's statistics.
func ResetStats() { Default().ResetStats() }

// Reset clears the Default engine.
func Reset() { Default().Reset() }
