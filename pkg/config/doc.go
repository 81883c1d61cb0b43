// Package config loads recordctl configuration from YAML, applies
// environment overrides, and validates the result.
package config
