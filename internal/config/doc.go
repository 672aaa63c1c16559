// Package config loads, normalizes, and validates reelsmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours
// environment fallbacks such as OPENAI_API_KEY and PEXELS_API_KEY. The Config
// type centralizes every knob the CLI and the production pipeline need so that
// provider credentials, timeouts, and data directories are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
