// Package config loads, normalizes, and validates redreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REDDIT_CLIENT_ID. The Config type centralizes every knob the library and CLI
// need, so source lists, credential storage paths, and API identity are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
