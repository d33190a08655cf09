// Package config loads, normalizes, and validates parity run configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as PARITY_PIM_USERNAME.
// The Config type centralizes every knob the CLI needs: state and staging
// directories, which checks run, marketplace and PIM endpoints, and download
// retry policy.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
