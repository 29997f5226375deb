package jsontree

import (
	"errors"
	"fmt"

	"github.com/reoring/jsontree/i18n"
)

// Error codes of structural validation errors.
const (
	CodeInvalidName      = "invalid_name"
	CodeInvalidOperation = "invalid_operation"
)

// ValidationError reports a rejected structural edit. The tree is unchanged
// when one is returned.
type ValidationError struct {
	Code    string // One of the codes listed above.
	Message string // Localized through i18n.
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Is matches any ValidationError with the same code, so errors.Is works with
// the sentinels below.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidName      = &ValidationError{Code: CodeInvalidName}
	ErrInvalidOperation = &ValidationError{Code: CodeInvalidOperation}
)

func validationError(code string) *ValidationError {
	return &ValidationError{Code: code, Message: i18n.T(code, nil)}
}

// ResolutionError reports a $ref that could not be dereferenced.
type ResolutionError struct {
	Ref   string
	Cause error
}

func (e *ResolutionError) Error() string {
	msg := i18n.T("resolution_failed", map[string]string{"ref": e.Ref})
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// AsResolutionError extracts a ResolutionError using errors.As.
func AsResolutionError(err error) (*ResolutionError, bool) {
	if err == nil {
		return nil, false
	}
	var re *ResolutionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
