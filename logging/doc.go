// Package logging provides a minimal logging interface and adapters for scenemesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the stage and stores use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZerologAdapter wrapping rs/zerolog
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	st := stage.New(func(o *stage.Options) { o.Logger = logger })
package logging
