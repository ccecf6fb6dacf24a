// Package logging provides a minimal logging interface and adapters for evalharness.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that advisors, chat clients and judges use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NewLogger building a JSON or text slog logger from a LoggerConfig
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	adv, err := harness.NewBuilder().JudgeClientFactory(judge).Logger(logger).Build()
//
// Arguments follow slog conventions: alternating key/value pairs after the message.
package logging
