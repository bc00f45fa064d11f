// Package config defines the Fetchgate configuration tree and its
// loading pipeline: YAML file, defaults, FETCHGATE_* environment
// overrides, validation, and optional hot-reload of the runtime
// section via file watching.
package config
