// Package logging provides structured logging for loadsynth.
//
// It wraps the standard log/slog package so every component logs with the
// same handler, level and default fields.
//
// # Features
//
//   - Text output for interactive runs, JSON for batch pipelines
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Component-scoped child loggers
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("run started", "days", 7)
//	sched := logger.Component("scheduler")
package logging
