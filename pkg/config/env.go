package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/getmockd/mayhem/pkg/logging"
)

// Environment variable names
const (
	EnvEnabled   = "MAYHEM_ENABLED"
	EnvSeed      = "MAYHEM_SEED"
	EnvPreset    = "MAYHEM_PRESET"
	EnvLog       = "MAYHEM_LOG"
	EnvLogLevel  = logging.EnvLevel
	EnvLogFormat = logging.EnvFormat
	EnvConfig    = "MAYHEM_CONFIG"
)

// SourceEnv marks a key set from the environment in File.Sources.
const SourceEnv = "env"

// ApplyEnv overrides the file with MAYHEM_* variables. Only variables that
// are present and parse are applied.
func (f *File) ApplyEnv() {
	if f.Sources == nil {
		f.Sources = make(map[string]string)
	}

	// MAYHEM_ENABLED
	if v := os.Getenv(EnvEnabled); v != "" {
		if b, ok := parseBool(v); ok {
			f.Enabled = b
			f.Sources["enabled"] = SourceEnv
		}
	}

	// MAYHEM_SEED
	if v := os.Getenv(EnvSeed); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.Seed = &n
			f.Sources["seed"] = SourceEnv
		}
	}

	// MAYHEM_PRESET
	if v := os.Getenv(EnvPreset); v != "" {
		f.Preset = v
		f.Sources["preset"] = SourceEnv
	}

	// MAYHEM_LOG
	if v := os.Getenv(EnvLog); v != "" {
		if b, ok := parseBool(v); ok {
			f.Log = b
			f.Sources["log"] = SourceEnv
		}
	}

	// MAYHEM_LOG_LEVEL
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.Logging.Level = v
		f.Sources["logging.level"] = SourceEnv
	}

	// MAYHEM_LOG_FORMAT
	if v := os.Getenv(EnvLogFormat); v != "" {
		f.Logging.Format = v
		f.Sources["logging.format"] = SourceEnv
	}
}

// PathFromEnv returns MAYHEM_CONFIG.
func PathFromEnv() string {
	return os.Getenv(EnvConfig)
}

func parseBool(v string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
