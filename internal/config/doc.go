// Package config handles YAML configuration loading for the display client.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation. Command-line flags are layered on top by cmd/display.
package config
