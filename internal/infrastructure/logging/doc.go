// Package logging provides structured logging for the constrained device agent.
//
// It wraps log/slog so that every component logs with the same format and the
// same default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("sensor poll complete", "readings", 3)
//
// Components never import this package directly for their own use. They accept
// a narrow Logger interface (Debug/Info/Warn/Error) and *Logger satisfies it.
package logging
