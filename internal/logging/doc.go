// Package logging builds slog loggers with Skimmer's standardized field keys
// and context-derived attributes.
package logging
