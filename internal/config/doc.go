// Package config loads, normalizes, and validates worldbuilder configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GITHUB_TOKEN and WORLDBUILDER_BACKEND_KEY. Credentials are only ever read
// from the config file or the environment; there are no built-in fallback
// keys.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
