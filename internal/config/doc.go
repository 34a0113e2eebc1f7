// Package config loads, normalizes, and validates Reel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/reel/config.toml or a
// project-local reel.toml. The Config type centralizes every knob the daemon
// and CLI need: state directories, collaborator credentials, the weekly
// schedule table, and logging shape.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
