package pipeline

import (
	"errors"
	"fmt"
)

// Error codes reported in Result.Error.
const (
	CodeInvalidImage       = "InvalidImage"
	CodeRecognitionFailure = "RecognitionFailure"
	CodeConfiguration      = "ConfigurationError"
	CodeProcessing         = "ProcessingError"
)

// Sentinels matched by errors.Is against an *Error of the same code.
var (
	ErrInvalidImage       = errors.New("invalid image")
	ErrRecognitionFailure = errors.New("recognition failure")
	ErrConfiguration      = errors.New("configuration error")
	ErrProcessing         = errors.New("processing error")
)

var sentinels = map[string]error{
	CodeInvalidImage:       ErrInvalidImage,
	CodeRecognitionFailure: ErrRecognitionFailure,
	CodeConfiguration:      ErrConfiguration,
	CodeProcessing:         ErrProcessing,
}

// Error is a pipeline failure with a code, the stage it happened in, and
// the underlying cause.
type Error struct {
	Code    string
	Stage   Stage
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Stage != StageIdle {
		msg = fmt.Sprintf("%s (%s)", msg, e.Stage)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	return sentinels[e.Code] == target
}

// ToMap converts the error to a map for JSON surfaces.
func (e *Error) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Stage != StageIdle {
		m["stage"] = e.Stage.String()
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	return m
}

func newError(code string, stage Stage, message string, cause error) *Error {
	return &Error{Code: code, Stage: stage, Message: message, Cause: cause}
}

func configError(format string, args ...interface{}) *Error {
	return newError(CodeConfiguration, StageIdle, fmt.Sprintf(format, args...), nil)
}
