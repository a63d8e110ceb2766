// Package logging provides structured logging for the threshold controller.
//
// It wraps log/slog with a JSON or text handler, level filtering and the
// default fields service and version on every entry.
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("relay actuated", "channel", 3, "on", true)
//
// Never log secrets, tokens or passwords.
package logging
