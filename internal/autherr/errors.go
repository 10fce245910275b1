package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable identifier returned to API clients.
type Code string

const (
	CodeUserExists           Code = "USER_EXISTS"
	CodeInvalidCredentials   Code = "INVALID_CREDENTIALS"
	CodeAccountDisabled      Code = "ACCOUNT_DISABLED"
	CodeEmailNotVerified     Code = "EMAIL_NOT_VERIFIED"
	CodeTwoFactorRequired    Code = "2FA_REQUIRED"
	CodeTwoFactorNotEnabled  Code = "2FA_NOT_ENABLED"
	CodeTwoFactorEnabled     Code = "2FA_ALREADY_ENABLED"
	CodeInvalidTwoFactorCode Code = "INVALID_2FA_TOKEN"
	CodeInvalidRefreshToken  Code = "INVALID_REFRESH_TOKEN"
	CodeTokenVersionMismatch Code = "TOKEN_VERSION_MISMATCH"
	CodeInvalidToken         Code = "INVALID_TOKEN"
	CodeTokenExpired         Code = "TOKEN_EXPIRED"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeInfrastructure       Code = "INFRASTRUCTURE"
)

// Error is a business-rule failure carried as a value. Status is a
// transport hint; only the HTTP boundary reads it.
type Error struct {
	Code    Code
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match any instance carrying the same code, so
// wrapped infrastructure errors still compare against sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrUserExists           = &Error{Code: CodeUserExists, Status: http.StatusBadRequest, Message: "an account with this email already exists"}
	ErrInvalidCredentials   = &Error{Code: CodeInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"}
	ErrAccountDisabled      = &Error{Code: CodeAccountDisabled, Status: http.StatusForbidden, Message: "account is disabled"}
	ErrEmailNotVerified     = &Error{Code: CodeEmailNotVerified, Status: http.StatusForbidden, Message: "email address is not verified"}
	ErrTwoFactorRequired    = &Error{Code: CodeTwoFactorRequired, Status: http.StatusForbidden, Message: "two-factor code required"}
	ErrTwoFactorNotEnabled  = &Error{Code: CodeTwoFactorNotEnabled, Status: http.StatusBadRequest, Message: "two-factor authentication is not enabled"}
	ErrTwoFactorEnabled     = &Error{Code: CodeTwoFactorEnabled, Status: http.StatusBadRequest, Message: "two-factor authentication is already enabled"}
	ErrInvalidTwoFactorCode = &Error{Code: CodeInvalidTwoFactorCode, Status: http.StatusUnauthorized, Message: "invalid two-factor code"}
	ErrInvalidRefreshToken  = &Error{Code: CodeInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"}
	ErrTokenVersionMismatch = &Error{Code: CodeTokenVersionMismatch, Status: http.StatusUnauthorized, Message: "token has been revoked"}
	ErrInvalidToken         = &Error{Code: CodeInvalidToken, Status: http.StatusBadRequest, Message: "invalid or unknown token"}
	ErrTokenExpired         = &Error{Code: CodeTokenExpired, Status: http.StatusBadRequest, Message: "token has expired"}
	ErrUserNotFound         = &Error{Code: CodeUserNotFound, Status: http.StatusNotFound, Message: "user not found"}
)

// Infrastructure wraps a store or registry transport fault. Auth fails
// closed: these are surfaced, never retried or downgraded.
func Infrastructure(op string, cause error) *Error {
	return &Error{
		Code:    CodeInfrastructure,
		Status:  http.StatusServiceUnavailable,
		Message: op + " unavailable",
		cause:   cause,
	}
}

// From extracts the typed error if err carries one; otherwise it
// reports a generic infrastructure failure so no raw error text leaks
// to clients.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInfrastructure, Status: http.StatusServiceUnavailable, Message: "internal error", cause: err}
}
