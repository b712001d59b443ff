// Package config loads the broker's configuration from FEDBRIDGE_*
// environment variables and validates it before startup.
package config
