// Package config loads, normalizes, and validates Skimmer's TOML configuration.
package config
