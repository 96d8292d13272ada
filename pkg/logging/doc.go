// Package logging builds the slog loggers used across mayhem.
//
// The chaos engine logs through a *slog.Logger set with Engine.SetLogger;
// it discards output until one is set. With Settings.Log enabled every
// fired chaos event is logged at Info with the keys event, target and
// delay_ms.
//
//	logger := logging.New(logging.FromEnv(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	}))
//	engine.SetLogger(logger)
//
// FromEnv applies MAYHEM_LOG_LEVEL and MAYHEM_LOG_FORMAT on top of a
// config. Levels and formats parse case-insensitively and fall back to
// info and text.
package logging
