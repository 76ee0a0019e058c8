package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidMnemonic   = errors.New("invalid mnemonic")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrAppendFailed      = errors.New("ledger append failed")
	ErrPaginationFailed  = errors.New("timeline pagination failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to own address")
	ErrStoreCorrupt      = errors.New("wallet store is corrupt")
)

// Error codes returned to API clients
const (
	CodeInvalidInput      = "ERR_INVALID_INPUT"
	CodeUnauthorized      = "ERR_UNAUTHORIZED"
	CodeForbidden         = "ERR_FORBIDDEN"
	CodeNotFound          = "ERR_NOT_FOUND"
	CodeConflict          = "ERR_CONFLICT"
	CodeUnprocessable     = "ERR_UNPROCESSABLE"
	CodeUnavailable       = "ERR_SERVICE_UNAVAILABLE"
	CodeInternalError     = "ERR_INTERNAL"
	CodeInvalidMnemonic   = "ERR_INVALID_MNEMONIC"
	CodeWalletNotFound    = "ERR_WALLET_NOT_FOUND"
	CodeLedgerUnavailable = "ERR_LEDGER_UNAVAILABLE"
	CodeInsufficientFunds = "ERR_INSUFFICIENT_FUNDS"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, nil)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// FromDomain maps a domain sentinel to the AppError a handler should return
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrInvalidMnemonic):
		return NewAppError(http.StatusBadRequest, CodeInvalidMnemonic, "invalid recovery phrase", err)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrSelfTransfer):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrInsufficientFunds):
		return NewAppError(http.StatusUnprocessableEntity, CodeInsufficientFunds, "insufficient balance", err)
	case errors.Is(err, ErrWalletNotFound):
		return NewAppError(http.StatusNotFound, CodeWalletNotFound, "no local wallet for this DAO", err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, err.Error(), err)
	case errors.Is(err, ErrLedgerUnavailable):
		return NewAppError(http.StatusConflict, CodeLedgerUnavailable, "DAO has no ledger room", err)
	case errors.Is(err, ErrAppendFailed):
		return NewAppError(http.StatusServiceUnavailable, CodeUnavailable, "ledger append failed", err)
	case errors.Is(err, ErrForbidden):
		return NewAppError(http.StatusForbidden, CodeForbidden, err.Error(), err)
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, err.Error(), err)
	}
	return InternalError(err)
}
