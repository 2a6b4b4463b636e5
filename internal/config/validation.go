package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate performs validation of the configuration.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	if len(c.Match.Dirs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "match.dirs",
			Message: "at least one match directory is required",
		})
	}

	switch c.Output.Backend {
	case "wtype", "log":
	default:
		errs = append(errs, ValidationError{
			Field:   "output.backend",
			Message: fmt.Sprintf("unknown backend %q (want wtype or log)", c.Output.Backend),
		})
	}

	if c.Output.DelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "output.delay_ms",
			Message: "must not be negative",
		})
	}

	if c.Input.SuppressMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "input.suppress_ms",
			Message: "must not be negative",
		})
	}

	if c.Vars.ShellTimeoutSec <= 0 {
		errs = append(errs, ValidationError{
			Field:   "vars.shell_timeout_sec",
			Message: "must be positive",
		})
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", c.Logging.Level),
		})
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", c.Logging.Format),
		})
	}

	if c.IPC.Enabled && c.IPC.Socket == "" {
		errs = append(errs, ValidationError{
			Field:   "ipc.socket",
			Message: "required when ipc is enabled",
		})
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "history.path",
			Message: "required when history is enabled",
		})
	}

	if c.Reload.Enabled && c.Reload.DebounceMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "reload.debounce_ms",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
