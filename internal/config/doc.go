// Package config resolves the service configuration.
//
// Two kinds of configuration live here. Settings (repository URL and file
// path) are resolved on every request from Secret Manager, falling back to
// plain environment variables and finally to built-in defaults. Options
// (working directory, depths, timeouts, page geometry) describe the service
// itself and come from an optional YAML file overlaid by CVSERVE_*
// environment variables.
package config
