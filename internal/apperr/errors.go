package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested article, slug, tag or category
// does not exist.
var ErrNotFound = errors.New("not found")

// Validation codes returned by the input validator.
const (
	CodeTitleRequired   = "TITLE_REQUIRED"
	CodeTitleTooShort   = "TITLE_TOO_SHORT"
	CodeTitleTooLong    = "TITLE_TOO_LONG"
	CodeContentRequired = "CONTENT_REQUIRED"
	CodeContentTooShort = "CONTENT_TOO_SHORT"
	CodeInvalidStatus   = "INVALID_STATUS"
)

// ValidationError is a recoverable input error. It carries a stable code so
// callers can map it to a user-facing message without string matching.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// PersistenceError wraps a failed store call with the operation that issued it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PartialFailure reports a multi-step operation whose earlier steps committed
// but a later step did not. The store exposes no cross-statement transactions
// to this layer, so nothing is rolled back; Completed tells the caller what
// already happened and Failed what must be retried.
type PartialFailure struct {
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("step %q failed after [%s] committed: %v",
		e.Failed, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPartial reports whether err is a partial failure
func IsPartial(err error) bool {
	var pf *PartialFailure
	return errors.As(err, &pf)
}
