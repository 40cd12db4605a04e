package model

import "fmt"

// InvalidInputError reports a malformed input record or an unusable
// operation parameter. Processing aborts before any output is produced;
// there is no partial-success mode.
type InvalidInputError struct {
	Record string // offending record id, empty when not row-scoped
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	switch {
	case e.Record != "" && e.Field != "":
		return fmt.Sprintf("invalid input: record %q field %q: %s", e.Record, e.Field, e.Reason)
	case e.Record != "":
		return fmt.Sprintf("invalid input: record %q: %s", e.Record, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid input: field %q: %s", e.Field, e.Reason)
	default:
		return "invalid input: " + e.Reason
	}
}

// SourceUnavailableError reports that a chunk listing source could not be
// reached or read. Callers surface it rather than treating the source as
// empty, so an outage never reads as "every chunk missing".
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source %s unavailable", e.Source)
	}
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid configuration value or command
// flag, detected before any processing starts.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Param, e.Reason)
}
