package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes used across the engine. Callers branch on Code, never on Message.
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeAlreadyEffectuated  = "ALREADY_EFFECTUATED"
	CodeAlreadySplit        = "ALREADY_SPLIT"
	CodeAlreadySettled      = "ALREADY_SETTLED"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeLockedInvariant     = "LOCKED_INVARIANT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidArgument     = NewDomainError(CodeInvalidArgument, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInsufficientFunds   = NewDomainError(CodeInsufficientFunds, "Insufficient funds available")
	ErrLockedInvariant     = NewDomainError(CodeLockedInvariant, "Operation would retroactively alter history")
)

// IsCode reports whether err is, or wraps, a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == code
}
