// Package config loads application configuration from environment
// variables, with an optional .env file for local development. All
// variables are prefixed METERBOT_.
package config
