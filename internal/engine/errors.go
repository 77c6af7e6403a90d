package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors. Match them with errors.Is; every *Error produced by the
// engine wraps one of these or a store/loader error.
var (
	// ErrExecutorNotFound means a script names an executor nobody can build.
	// The script cannot possibly run.
	ErrExecutorNotFound = errors.New("executor not found")

	// ErrMissingExecutorName means a script has no executor name.
	ErrMissingExecutorName = errors.New("script executor name is required")

	// ErrNoExecutors means Run was called with an empty registry.
	ErrNoExecutors = errors.New("unable to run without any script executors")

	// ErrScriptFailed means an executor returned false without an error.
	ErrScriptFailed = errors.New("script failed to execute")
)

// ErrorKind categorizes engine errors.
type ErrorKind string

const (
	// KindConfiguration covers problems found before any script executes:
	// unresolvable or missing executor names, invalid documents, loader
	// failures, an empty registry.
	KindConfiguration ErrorKind = "CONFIGURATION"

	// KindResolution means an executor could not be resolved mid-run.
	KindResolution ErrorKind = "RESOLUTION"

	// KindExecution means an executor ran and reported failure.
	KindExecution ErrorKind = "EXECUTION"

	// KindStore means the completion store failed to read or write.
	KindStore ErrorKind = "STORE"
)

// Error is returned by New and Run.
//
// Error includes structured fields for diagnostics and resume.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// DocumentID identifies the affected document, if any.
	DocumentID string

	// ScriptID identifies the affected script, if any.
	ScriptID string

	// Executor is the executor name involved, if any.
	Executor string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	switch {
	case e.ScriptID != "":
		msg += fmt.Sprintf(" (document=%s, script=%s)", e.DocumentID, e.ScriptID)
	case e.DocumentID != "":
		msg += fmt.Sprintf(" (document=%s)", e.DocumentID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsConfigurationError returns true if the error was raised before any script
// executed because the engine or its inputs are misconfigured.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	return isKind(err, KindConfiguration)
}

// IsResolutionError returns true if a script names an executor that cannot be
// built, whether detected at construction or mid-run.
func IsResolutionError(err error) bool {
	return isKind(err, KindResolution) || errors.Is(err, ErrExecutorNotFound)
}

// IsExecutionError returns true if a script ran and its executor reported
// failure.
func IsExecutionError(err error) bool {
	return isKind(err, KindExecution)
}

// IsStoreError returns true if the completion store failed.
func IsStoreError(err error) bool {
	return isKind(err, KindStore)
}

func configurationError(message string, err error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Err: err}
}

func storeError(message, documentID, scriptID string, err error) *Error {
	return &Error{Kind: KindStore, Message: message, DocumentID: documentID, ScriptID: scriptID, Err: err}
}
