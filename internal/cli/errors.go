package cli

import (
	"errors"

	"github.com/roach88/executioner/internal/engine"
	"github.com/roach88/executioner/internal/loader"
	"github.com/roach88/executioner/internal/script"
)

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric          = "E001" // Generic/unknown error
	ErrCodeConfig           = "E002" // Config file or flag error
	ErrCodeLoadFailed       = "E003" // Script documents could not be loaded
	ErrCodeInvalidDocuments = "E004" // Documents failed validation
	ErrCodeExecutorNotFound = "E005" // A script names an unknown executor
	ErrCodeStore            = "E006" // Completion store failure
	ErrCodeScriptFailed     = "E007" // A script's executor reported failure
	ErrCodeNoExecutors      = "E008" // Nothing to run with
	ErrCodeScenarioFailed   = "E009" // One or more test scenarios failed
)

// classify maps an error to a CLI error code and exit code.
func classify(err error) (string, int) {
	var loadErr *loader.LoadError
	var validationErr *script.ValidationError

	switch {
	case errors.As(err, &loadErr):
		return ErrCodeLoadFailed, ExitCommandError
	case errors.As(err, &validationErr), errors.Is(err, engine.ErrMissingExecutorName):
		return ErrCodeInvalidDocuments, ExitCommandError
	case engine.IsResolutionError(err):
		return ErrCodeExecutorNotFound, ExitCommandError
	case errors.Is(err, engine.ErrNoExecutors):
		return ErrCodeNoExecutors, ExitCommandError
	case engine.IsExecutionError(err):
		return ErrCodeScriptFailed, ExitFailure
	case engine.IsStoreError(err):
		return ErrCodeStore, ExitCommandError
	case engine.IsConfigurationError(err):
		return ErrCodeConfig, ExitCommandError
	default:
		return ErrCodeGeneric, ExitFailure
	}
}

// errorDetails pulls the structured fields out of an engine error.
func errorDetails(err error) map[string]any {
	details := map[string]any{}

	var engErr *engine.Error
	if errors.As(err, &engErr) {
		details["kind"] = string(engErr.Kind)
		if engErr.DocumentID != "" {
			details["document"] = engErr.DocumentID
		}
		if engErr.ScriptID != "" {
			details["script"] = engErr.ScriptID
		}
		if engErr.Executor != "" {
			details["executor"] = engErr.Executor
		}
	}

	var validationErr *script.ValidationError
	if errors.As(err, &validationErr) {
		issues := make([]string, 0, len(validationErr.Issues))
		for _, issue := range validationErr.Issues {
			issues = append(issues, issue.String())
		}
		details["issues"] = issues
	}

	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) && loadErr.Path != "" {
		details["path"] = loadErr.Path
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// fail writes err through the formatter and returns the matching ExitError.
func fail(f *OutputFormatter, message string, err error) error {
	code, exit := classify(err)
	return failWith(f, code, exit, message, err, errorDetails(err))
}

func failWith(f *OutputFormatter, code string, exit int, message string, err error, details any) error {
	msg := message
	if err != nil {
		msg = message + ": " + err.Error()
	}
	if outErr := f.Error(code, msg, details); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}
