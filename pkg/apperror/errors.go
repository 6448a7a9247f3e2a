package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Command intake (CMD) ----

func ErrInvalidCommand(message string) *AppError {
	return New("CMD_001", message, http.StatusBadRequest)
}

func ErrMissingUser() *AppError {
	return New("CMD_002", "user_id is required", http.StatusBadRequest)
}

func ErrRequestInProgress() *AppError {
	return New("CMD_003", "A request with this idempotency key is already in progress", http.StatusConflict)
}

func ErrCheckFailed(err error) *AppError {
	return Wrap("CMD_004", "Command check could not complete", http.StatusBadGateway, err)
}

// ---- Wallet custodian (WAL) ----

func ErrWalletNotFound() *AppError {
	return New("WAL_001", "No wallet found for user", http.StatusNotFound)
}

func ErrCustodian(err error) *AppError {
	return Wrap("WAL_002", "Wallet provider request failed", http.StatusBadGateway, err)
}

func ErrCustodianRateLimited(err error) *AppError {
	return Wrap("WAL_003", "Wallet provider rate limited the request", http.StatusServiceUnavailable, err)
}

func ErrTransferNotSettled(txID string) *AppError {
	return New("WAL_004", fmt.Sprintf("Transaction %s has not reached a final state yet", txID), http.StatusAccepted)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrCacheFailure(err error) *AppError {
	return Wrap("SYS_002", "Cache service failure", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a CMD_001-style validation error.
func Validation(message string) *AppError {
	return New("CMD_001", message, http.StatusBadRequest)
}
