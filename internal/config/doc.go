// Package config loads sportshub settings from defaults, an optional YAML
// file, a .env file and SPORTSHUB_* environment variables, in increasing
// order of precedence.
package config
