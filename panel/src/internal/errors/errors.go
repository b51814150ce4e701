package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeCommand indicates an external operation failed
	ErrorTypeCommand ErrorType = "COMMAND"
	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// PanelError represents a custom error with additional context
type PanelError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   string
}

// Error implements the error interface
func (e *PanelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *PanelError) Unwrap() error {
	return e.Err
}

// New creates a new PanelError
func New(errType ErrorType, message string, err error) *PanelError {
	_, file, line, _ := runtime.Caller(1)
	stack := fmt.Sprintf("%s:%d", file, line)

	return &PanelError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

// TypeOf returns the type of the first PanelError in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var pErr *PanelError
	if errors.As(err, &pErr) {
		return pErr.Type
	}
	return ErrorTypeInternal
}

// IsCommand checks if the error is an external operation failure
func IsCommand(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeCommand
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeInternal
}

// RecoverError recovers from a panic and converts it to a PanelError
func RecoverError(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("%s", v)
	default:
		err = fmt.Errorf("%v", v)
	}

	return New(ErrorTypeInternal, "recovered from panic", err)
}
