// Package config loads and validates application configuration.
//
// Configuration is assembled from two sources: environment variables with
// the EXPODASH prefix (processed by envconfig) and an optional YAML file
// looked up in a small set of conventional locations. Environment variables
// take precedence over file values. Load returns a validated Config; use
// Default for tests and tools that need a working configuration without
// touching the environment.
package config
