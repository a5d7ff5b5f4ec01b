package domain

import "fmt"

// Error codes returned to API clients in the error envelope.
const (
	CodeMissingToken          = "AUTH.MISSING_TOKEN"
	CodeInvalidToken          = "AUTH.INVALID_TOKEN"
	CodeUserLocked            = "AUTH.USER_LOCKED"
	CodeInvalidTenant         = "AUTH.INVALID_TENANT"
	CodeInvalidCredentials    = "AUTH.INVALID_CREDENTIALS"
	CodeValidationRequired    = "VALIDATION.REQUIRED"
	CodeValidationField       = "VALIDATION.INVALID_FIELD"
	CodeValidationReference   = "VALIDATION.INVALID_REFERENCE"
	CodeValidationJSON        = "VALIDATION.INVALID_JSON"
	CodeStagePipelineMismatch = "STAGE_PIPELINE_MISMATCH"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeStoreUnavailable      = "STORE.UNAVAILABLE"
	CodeInternal              = "INTERNAL"
)

// TokenFailure is the internal reason a presented token was rejected.
// All reasons surface to clients as AUTH.INVALID_TOKEN.
type TokenFailure string

const (
	TokenNotFound TokenFailure = "TOKEN_NOT_FOUND"
	TokenRevoked  TokenFailure = "TOKEN_REVOKED"
	TokenExpired  TokenFailure = "TOKEN_EXPIRED"
)

// ErrNotFound indicates a resource was not found in the caller's tenant.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Code    string
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// RequiredField builds the error for a blank required field.
func RequiredField(field string) *ErrValidation {
	return &ErrValidation{Code: CodeValidationRequired, Field: field, Message: field + " is required"}
}

// InvalidField builds the error for a malformed field.
func InvalidField(field, message string) *ErrValidation {
	return &ErrValidation{Code: CodeValidationField, Field: field, Message: message}
}

// ErrInvalidReference indicates a payload references an entity that does not
// exist in the caller's tenant.
type ErrInvalidReference struct {
	Field string
	ID    string
}

func (e *ErrInvalidReference) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.ID)
}

// ErrStagePipelineMismatch indicates a deal was pointed at a stage of another pipeline.
type ErrStagePipelineMismatch struct {
	StageID    string
	PipelineID string
}

func (e *ErrStagePipelineMismatch) Error() string {
	return fmt.Sprintf("stage %s does not belong to pipeline %s", e.StageID, e.PipelineID)
}

// ErrConflict indicates a uniqueness or referential conflict.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates missing or invalid credentials or token.
// Reason is set for token failures and never leaves the process.
type ErrUnauthorized struct {
	Code    string
	Message string
	Reason  TokenFailure
}

func (e *ErrUnauthorized) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Reason)
	}
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// InvalidToken builds the error for a rejected bearer token.
func InvalidToken(reason TokenFailure) *ErrUnauthorized {
	return &ErrUnauthorized{Code: CodeInvalidToken, Message: "Invalid or expired token.", Reason: reason}
}

// ErrAccountBlocked indicates the user is inactive or locked.
type ErrAccountBlocked struct {
	UserID string
}

func (e *ErrAccountBlocked) Error() string {
	return "User is locked or inactive."
}

// ErrStoreUnavailable indicates the data store could not be reached.
type ErrStoreUnavailable struct {
	Store string
	Err   error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable [%s]: %v", e.Store, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
