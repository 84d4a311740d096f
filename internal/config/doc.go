// Package config loads, normalizes, and validates finmatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the FINMATCH_CATALOG environment
// fallback for the catalog database. The Config type centralizes every knob
// the matcher and CLI need so that catalog locations and matching parameters
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical option names, and clear validation errors.
package config
