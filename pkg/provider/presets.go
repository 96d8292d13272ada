package provider

import "github.com/getmockd/mayhem/pkg/chaos"

// Preset returns the config of a provider severity tier, or an empty config
// for an unknown name.
func Preset(name string) chaos.Config {
	p, _ := chaos.GetProviderPreset(name)
	return p.Config
}

// Presets returns the provider severity tiers, mildest first.
func Presets() []chaos.Preset {
	return chaos.ListProviderPresets()
}
