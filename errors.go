package shop

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrNoEmptyString is returned when a required string input is empty
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode("EMPTY_INPUT")

// ErrMismatchedHashAndPassword is the codec-level mismatch error. Callers
// facing end users should normalize it to ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = errors.New("hash and password mismatch", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("HASH_MISMATCH")

// ErrInvalidCredentials is the single user-facing error for a failed signin.
// Lookup miss and password mismatch both map here so responses never reveal
// which part was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode("INVALID_CREDENTIALS")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode("IDENTITY_NOT_FOUND")

// ErrUnableToFindSession is the error when a request carries no token at all
var ErrUnableToFindSession = errors.New("please sign in", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("NO_SESSION")

// ErrTokenExpired marks a token past its expiration claim
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenSignature marks a token whose signature does not verify
var ErrTokenSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_SIGNATURE")

// ErrTokenMalformed marks a token that cannot be parsed
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrAccountInactive rejects credentials that verified against a
// deactivated account
var ErrAccountInactive = errors.New("account is deactivated", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode("ACCOUNT_INACTIVE")

// ErrAdminRequired rejects valid credentials that lack the admin role
var ErrAdminRequired = errors.New("admin privileges required", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode("ADMIN_REQUIRED")

// ErrNotResourceOwner rejects an authenticated identity acting on a
// resource it neither owns nor administers
var ErrNotResourceOwner = errors.New("not allowed to act on this resource", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode("NOT_RESOURCE_OWNER")

// ErrUsernameTaken signals a username uniqueness conflict
var ErrUsernameTaken = errors.New("username is already taken", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode("USERNAME_TAKEN")

// ErrPhoneTaken signals a phone number uniqueness conflict
var ErrPhoneTaken = errors.New("phone number is already registered", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode("PHONE_TAKEN")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// HTTPStatus resolves the response status for an error. Conflicts map to
// 400 rather than 409: clients of this API treat uniqueness failures as
// plain validation errors.
func HTTPStatus(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return 500
	}

	if richErr.Category == errors.CategoryConflict {
		return 400
	}

	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return 401
	case errors.CategoryAuthz:
		return 403
	case errors.CategoryNotFound:
		return 404
	case errors.CategoryBadInput, errors.CategoryValidation:
		return 400
	default:
		return 500
	}
}
