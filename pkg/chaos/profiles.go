// Copyright 2025 Mockd LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chaos

import (
	"errors"
	"fmt"
	"time"
)

// ErrPresetNotFound is returned when a preset name is unknown.
var ErrPresetNotFound = errors.New("preset not found")

// Preset is a pre-built chaos configuration that users can apply by name
// instead of setting individual knobs.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Config      Config `json:"config"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// presets are the environment tiers for generic operations, mildest first.
var presets = []Preset{
	{
		Name:        "development",
		Description: "Occasional failures and small delays",
		Config:      Config{Fail: 0.01, Delay: Between(ms(10), ms(100))},
	},
	{
		Name:        "staging",
		Description: "Light failures, moderate delays, rare hangs",
		Config:      Config{Fail: 0.05, Delay: Between(ms(50), ms(500)), Timeout: 0.02},
	},
	{
		Name:        "production",
		Description: "Failure and latency levels seen in busy production traffic",
		Config:      Config{Fail: 0.1, Delay: Between(ms(100), ms(1000)), Timeout: 0.05},
	},
	{
		Name:        "harsh",
		Description: "Frequent failures with jittery second-scale delays",
		Config:      Config{Fail: 0.2, Delay: Between(ms(500), ms(2000)), Timeout: 0.1, Jitter: ms(500)},
	},
	{
		Name:        "nightmare",
		Description: "Heavy failures and multi-second delays",
		Config:      Config{Fail: 0.4, Delay: Between(ms(1000), ms(5000)), Timeout: 0.2, Jitter: ms(2000)},
	},
	{
		Name:        "apocalypse",
		Description: "Most calls fail or hang",
		Config:      Config{Fail: 0.6, Delay: Between(ms(2000), ms(10000)), Timeout: 0.3, Jitter: ms(5000)},
	},
}

// providerPresets are the five severity tiers for model providers, mildest
// first.
var providerPresets = []Preset{
	{
		Name:        "realistic",
		Description: "Rare rate limits and overloads with normal latency",
		Config: Config{
			RateLimit:  RateLimitKnob{Rate: 0.02},
			Overloaded: 0.01,
			Delay:      Between(ms(50), ms(200)),
			SlowTokens: Between(ms(20), ms(80)),
		},
	},
	{
		Name:        "unstable",
		Description: "Regular rate limits and occasional stream cuts",
		Config: Config{
			RateLimit:  RateLimitKnob{Rate: 0.1},
			Overloaded: 0.05,
			StreamCut:  0.05,
			Delay:      Between(ms(100), ms(500)),
			SlowTokens: Between(ms(50), ms(200)),
		},
	},
	{
		Name:        "harsh",
		Description: "Frequent rate limits, stream cuts and content filtering",
		Config: Config{
			RateLimit:     RateLimitKnob{Rate: 0.2},
			Overloaded:    0.1,
			StreamCut:     0.1,
			ContentFilter: 0.02,
			Delay:         Between(ms(200), ms(1000)),
			SlowTokens:    Between(ms(100), ms(500)),
		},
	},
	{
		Name:        "nightmare",
		Description: "Truncated responses, failing tools and context errors",
		Config: Config{
			RateLimit:       RateLimitKnob{Rate: 0.3},
			Overloaded:      0.15,
			StreamCut:       0.15,
			ContentFilter:   0.05,
			ContextLength:   0.05,
			PartialResponse: 0.1,
			Delay:           Between(ms(500), ms(2000)),
			SlowTokens:      Between(ms(200), ms(1000)),
			ToolFailure:     0.1,
		},
	},
	{
		Name:        "apocalypse",
		Description: "Every provider fault at high rates",
		Config: Config{
			RateLimit:        RateLimitKnob{Rate: 0.4},
			Overloaded:       0.2,
			StreamCut:        0.2,
			ContentFilter:    0.1,
			ContextLength:    0.1,
			ModelUnavailable: 0.1,
			PartialResponse:  0.15,
			CorruptChunks:    0.05,
			Delay:            Between(ms(1000), ms(5000)),
			SlowTokens:       Between(ms(500), ms(2000)),
			ToolFailure:      0.2,
			ToolTimeout:      0.1,
		},
	},
}

// ListPresets returns the environment presets, mildest first.
func ListPresets() []Preset {
	return clonePresets(presets)
}

// ListProviderPresets returns the provider severity tiers, mildest first.
func ListProviderPresets() []Preset {
	return clonePresets(providerPresets)
}

// GetPreset returns an environment preset by name.
func GetPreset(name string) (Preset, bool) {
	return findPreset(presets, name)
}

// GetProviderPreset returns a provider tier by name.
func GetProviderPreset(name string) (Preset, bool) {
	return findPreset(providerPresets, name)
}

// PresetNames returns the environment preset names, mildest first.
func PresetNames() []string {
	return presetNames(presets)
}

// ProviderPresetNames returns the provider tier names, mildest first.
func ProviderPresetNames() []string {
	return presetNames(providerPresets)
}

// UsePreset enables an environment preset, falling back to a provider
// tier of the same name.
func (e *Engine) UsePreset(name string) error {
	p, ok := GetPreset(name)
	if !ok {
		p, ok = GetProviderPreset(name)
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	e.Enable(p.Config)
	return nil
}

func findPreset(list []Preset, name string) (Preset, bool) {
	for _, p := range list {
		if p.Name == name {
			p.Config = p.Config.Clone()
			return p, true
		}
	}
	return Preset{}, false
}

func presetNames(list []Preset) []string {
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	return names
}

func clonePresets(list []Preset) []Preset {
	out := make([]Preset, len(list))
	for i, p := range list {
		p.Config = p.Config.Clone()
		out[i] = p
	}
	return out
}
