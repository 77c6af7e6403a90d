package loader

import "fmt"

// Error codes for load failures.
const (
	ErrCodeReadFailed   = "E101" // file could not be read
	ErrCodeParseFailed  = "E102" // syntax or strict-decode failure
	ErrCodeSchemaFailed = "E103" // JSON schema or CUE concreteness failure
	ErrCodeBadDate      = "E104" // created is not YYYY-MM-DD
	ErrCodeNotFound     = "E105" // root does not exist
)

// LoadError describes a file that could not be turned into a document.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
