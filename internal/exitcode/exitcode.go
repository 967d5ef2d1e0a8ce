// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion. A sync that ran always exits
	// with Success; its failures are reported in the log.
	Success = 0

	// UserError indicates bad arguments or an unknown command.
	UserError = 1

	// ConfigError indicates missing or invalid configuration.
	ConfigError = 2

	// BackendError indicates a backend could not be reached or set up.
	BackendError = 3
)
