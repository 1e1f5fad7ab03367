// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, the remote prediction and report services, the
// circuit breaker tuning, correction storage and retraining triggers.
package config
