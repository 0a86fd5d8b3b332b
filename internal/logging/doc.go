// Package logging provides structured logging utilities for invoicefetch.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Handler construction from LOG_LEVEL / LOG_FORMAT style settings
//   - Consistent attribute naming across the codebase
//   - Token masking so credentials never reach the logs
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "pipeline.part")
//	logger.Info("attachment saved",
//	    logging.MessageID(id),
//	    logging.Filename(name),
//	    logging.Status("downloaded"))
//
// Errors are attached with Err, which is safe to call with a nil error:
//
//	logger.Warn("extraction failed", logging.Err(err))
package logging
