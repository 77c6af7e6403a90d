package script

import (
	"fmt"
	"strings"
)

// Validation error codes (E200-E299)
const (
	ErrDocumentIDEmpty     = "E201" // document has no id
	ErrDuplicateDocumentID = "E202" // two documents share an id
	ErrScriptIDEmpty       = "E203" // script has no id
	ErrDuplicateScriptID   = "E204" // two scripts share an id
	ErrExecutorNameEmpty   = "E205" // script has no executor name
	ErrDuplicateOrderKey   = "E206" // two scripts in a document share (date, order)
)

// Issue is a single problem found in a document set.
type Issue struct {
	Code       string `json:"code"`
	DocumentID string `json:"document_id,omitempty"`
	ScriptID   string `json:"script_id,omitempty"`
	Message    string `json:"message"`
}

func (i Issue) String() string {
	switch {
	case i.ScriptID != "":
		return fmt.Sprintf("[%s] document %s script %s: %s", i.Code, i.DocumentID, i.ScriptID, i.Message)
	case i.DocumentID != "":
		return fmt.Sprintf("[%s] document %s: %s", i.Code, i.DocumentID, i.Message)
	default:
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
}

// ValidationError collects every issue found by Validate.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid scripts: " + e.Issues[0].String()
	}
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = "  " + issue.String()
	}
	return fmt.Sprintf("invalid scripts (%d issues):\n%s", len(e.Issues), strings.Join(lines, "\n"))
}

// Has reports whether any issue carries the given code.
func (e *ValidationError) Has(code string) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// Validate checks a document set for identity and ordering problems.
// Returns all issues found (does not fail-fast), or nil.
func Validate(docs []*Document) error {
	var issues []Issue
	docIDs := make(map[string]bool, len(docs))
	scriptIDs := make(map[string]string)

	for _, d := range docs {
		if d.ID == "" {
			issues = append(issues, Issue{Code: ErrDocumentIDEmpty, Message: "document id is required"})
		} else if docIDs[d.ID] {
			issues = append(issues, Issue{Code: ErrDuplicateDocumentID, DocumentID: d.ID, Message: "duplicate document id"})
		}
		docIDs[d.ID] = true

		keys := make(map[OrderKey]string, len(d.Scripts))
		for _, s := range d.Scripts {
			switch {
			case s.ID == "":
				issues = append(issues, Issue{Code: ErrScriptIDEmpty, DocumentID: d.ID, Message: "script id is required"})
			case scriptIDs[s.ID] != "":
				issues = append(issues, Issue{
					Code:       ErrDuplicateScriptID,
					DocumentID: d.ID,
					ScriptID:   s.ID,
					Message:    fmt.Sprintf("script id already used in document %s", scriptIDs[s.ID]),
				})
			default:
				scriptIDs[s.ID] = d.ID
			}

			if strings.TrimSpace(s.Executor) == "" {
				issues = append(issues, Issue{Code: ErrExecutorNameEmpty, DocumentID: d.ID, ScriptID: s.ID, Message: "executor name is required"})
			}

			key := KeyOf(s)
			if other, ok := keys[key]; ok {
				issues = append(issues, Issue{
					Code:       ErrDuplicateOrderKey,
					DocumentID: d.ID,
					ScriptID:   s.ID,
					Message:    fmt.Sprintf("order key %s already used by script %s", key, other),
				})
			} else {
				keys[key] = s.ID
			}
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}
