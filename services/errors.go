package services

import "fmt"

// SimilarMatch is one candidate surfaced by a similarity conflict so the
// caller can offer a force-create option.
type SimilarMatch struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// ValidationError covers bad input and business-rule violations. Always
// recoverable by the caller correcting input. Matches is populated only for
// similarity conflicts.
type ValidationError struct {
	Message string
	Matches []SimilarMatch
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UnauthorizedError means the actor lacks rights for the operation.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

// NotFoundError means a referenced entity is missing.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ConflictError surfaces a race lost against a store-level uniqueness
// constraint, distinctly from pre-validation failures, so the caller can
// decide to retry with corrected input.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
