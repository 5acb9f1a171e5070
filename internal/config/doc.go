// Package config loads the calreminder process configuration from the
// environment, optionally seeded from a .env file.
package config
