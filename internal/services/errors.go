package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so the HTTP layer can pick a status.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidState
	KindInvalidCredentials
	KindUnauthorized
	KindPolicyViolation
	KindConflict
	KindDependencyFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindPolicyViolation:
		return "policy_violation"
	case KindConflict:
		return "conflict"
	case KindDependencyFailure:
		return "dependency_failure"
	default:
		return "unknown"
	}
}

// Error is the failure type returned by the services. Message is safe to
// show to API clients; Err is the underlying cause and is not.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Reasons []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so wrapped or decorated copies of a sentinel still
// compare equal to it.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrTokenNotFound      = &Error{Kind: KindNotFound, Code: "token_not_found", Message: "Invalid or unknown reset token"}
	ErrTokenAlreadyUsed   = &Error{Kind: KindInvalidState, Code: "token_already_used", Message: "This reset link has already been used"}
	ErrTokenExpired       = &Error{Kind: KindInvalidState, Code: "token_expired", Message: "This reset link has expired"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Code: "invalid_credentials", Message: "Invalid credentials"}
	ErrSamePassword       = &Error{Kind: KindPolicyViolation, Code: "same_password", Message: "The new password must be different from the current one"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: "Authentication required"}
	ErrEmailTaken         = &Error{Kind: KindConflict, Code: "email_taken", Message: "Email already used"}
	ErrPackNotFound       = &Error{Kind: KindNotFound, Code: "pack_not_found", Message: "Pack not found"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "User not found"}
	ErrTooManyImages      = &Error{Kind: KindPolicyViolation, Code: "too_many_images", Message: "A pack holds at most 10 images"}
)

func policyError(reasons []string) *Error {
	return &Error{
		Kind:    KindPolicyViolation,
		Code:    "weak_password",
		Message: "Password does not meet the security requirements",
		Reasons: reasons,
	}
}

func dependencyError(message string, err error) *Error {
	return &Error{Kind: KindDependencyFailure, Code: "dependency_failure", Message: message, Err: err}
}

// KindOf reports the Kind of err, or 0 when err is not a service Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
