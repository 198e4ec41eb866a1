package error

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable machine-readable error kind, distinct from the
// human-readable message attached to it.
type ErrorCode string

const (
	// Agent lifecycle errors (1xxx)
	ErrCodeAgentNotFound      ErrorCode = "AGENT_1001"
	ErrCodeDuplicateIdentity  ErrorCode = "AGENT_1002"
	ErrCodePreconditionFailed ErrorCode = "AGENT_1003"

	// Validation errors (2xxx)
	ErrCodeInvalidArgument ErrorCode = "VALID_2001"

	// Ledger errors (3xxx)
	ErrCodeLedgerUnavailable ErrorCode = "LEDGER_3001"
	ErrCodeLedgerRejected    ErrorCode = "LEDGER_3002"

	// Sandbox errors (4xxx)
	ErrCodeSandboxTimeout       ErrorCode = "SANDBOX_4001"
	ErrCodeInvalidSandboxOutput ErrorCode = "SANDBOX_4002"

	// Execution errors (5xxx)
	ErrCodeExecutionFailed ErrorCode = "EXEC_5001"

	// Auth errors (6xxx)
	ErrCodeUnauthorized ErrorCode = "AUTH_6001"

	// Storage / server errors (7xxx)
	ErrCodeDatabaseError       ErrorCode = "DB_7001"
	ErrCodeRateLimitExceeded   ErrorCode = "RATE_7002"
	ErrCodeInternalServerError ErrorCode = "SERVER_7003"
)

// AppError is a structured application error carrying a stable code, a
// human message and the underlying cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Common error constructors

func ErrAgentNotFound(agentID string) *AppError {
	return NewAppError(ErrCodeAgentNotFound, "Agent not found", fmt.Sprintf("Agent ID: %s", agentID), nil)
}

func ErrDuplicateIdentity(details string) *AppError {
	return NewAppError(ErrCodeDuplicateIdentity, "Agent with this public key already exists", details, nil)
}

func ErrPreconditionFailed(details string) *AppError {
	return NewAppError(ErrCodePreconditionFailed, "Operation not allowed in the agent's current state", details, nil)
}

func ErrInvalidArgument(field string) *AppError {
	return NewAppError(ErrCodeInvalidArgument, "Missing or malformed input", fmt.Sprintf("Field: %s", field), nil)
}

func ErrLedgerUnavailable(details string, cause error) *AppError {
	return NewAppError(ErrCodeLedgerUnavailable, "Ledger temporarily unavailable", details, cause)
}

func ErrLedgerRejected(details string, cause error) *AppError {
	return NewAppError(ErrCodeLedgerRejected, "Ledger rejected the request", details, cause)
}

func ErrSandboxTimeout(details string) *AppError {
	return NewAppError(ErrCodeSandboxTimeout, "Sandbox simulation exceeded its time budget", details, nil)
}

func ErrInvalidSandboxOutput(details string, cause error) *AppError {
	return NewAppError(ErrCodeInvalidSandboxOutput, "Sandbox produced malformed output", details, cause)
}

func ErrExecutionFailed(details string, cause error) *AppError {
	return NewAppError(ErrCodeExecutionFailed, "Execution endpoint call failed", details, cause)
}

func ErrUnauthorized(details string) *AppError {
	return NewAppError(ErrCodeUnauthorized, "Authentication required", details, nil)
}

func ErrDatabaseError(operation string, cause error) *AppError {
	return NewAppError(ErrCodeDatabaseError, "Database operation failed", fmt.Sprintf("Operation: %s", operation), cause)
}

func ErrRateLimitExceeded(details string) *AppError {
	return NewAppError(ErrCodeRateLimitExceeded, "Too many requests", details, nil)
}

func ErrInternalServerError(details string, cause error) *AppError {
	return NewAppError(ErrCodeInternalServerError, "Internal server error", details, cause)
}

// CodeOf extracts the machine-readable code from an error chain, or
// SERVER_7003 when the error is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalServerError
}

// AsAppError unwraps err into an *AppError, wrapping foreign errors as an
// internal server error so handlers always have a code to emit.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError("", err)
}

// GetHTTPStatusCode maps an error to the HTTP status of its kind.
func GetHTTPStatusCode(err error) int {
	switch CodeOf(err) {
	case ErrCodeAgentNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateIdentity:
		return http.StatusConflict
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodePreconditionFailed:
		return http.StatusPreconditionFailed
	case ErrCodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeLedgerRejected, ErrCodeInvalidSandboxOutput, ErrCodeExecutionFailed:
		return http.StatusBadGateway
	case ErrCodeSandboxTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
