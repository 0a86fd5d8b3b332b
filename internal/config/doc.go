// Package config resolves the settings of a fetch run.
//
// Values come from the process environment, optionally seeded from a .env file,
// and are overridden by command-line flags in the cmd package. Validate reports
// problems as *Error so the caller can abort before any Gmail request is made.
package config
