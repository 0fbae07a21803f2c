package dbdriver

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration = errors.New("invalid connection configuration")
	ErrUnsupported   = errors.New("operation not supported by driver")

	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrTableNotFound     = errors.New("table not found")
)

// ConfigError reports a configuration that lacks a field its kind requires.
// It is returned before any adapter is built.
type ConfigError struct {
	Kind    Kind
	Missing []string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// QueryError carries a failure reported by the remote service.
type QueryError struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s query failed (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s query failed: %s", e.Kind, e.Message)
}
