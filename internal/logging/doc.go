// Package logging builds the slog loggers used across redreel.
//
// It offers a pretty console handler for interactive use and a JSON handler
// for services, plus small helpers for typed attributes, component loggers,
// and a no-op logger for tests.
package logging
