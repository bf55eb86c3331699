// Package config handles loading and parsing of configuration from YAML files,
// environment variables and command line flags. It defines the application
// configuration structure including server settings, the backend pool with
// content affinities, the routing policy, health check and proxy timeouts.
package config
