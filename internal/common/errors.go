// Package common defines shared constants and sentinel errors used across
// the XChange API layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal    = errors.New("internal error")
	ErrConfiguration = errors.New("configuration error")

	// Client input errors.
	ErrBadRequest  = errors.New("bad request")
	ErrMissingCode = errors.New("missing authorization code")

	// Authentication errors. Handlers never tell clients which one occurred.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// Upstream OAuth provider failures.
	ErrProvider = errors.New("provider error")
)

// ProviderError describes a failure reported by (or caused by) an external
// OAuth provider. Code and Description mirror the provider's
// error/error_description fields when it sent them.
type ProviderError struct {
	Code        string
	Description string
	Err         error
}

// NewProviderError builds a ProviderError.
func NewProviderError(code, description string, err error) *ProviderError {
	return &ProviderError{Code: code, Description: description, Err: err}
}

func (e *ProviderError) Error() string {
	msg := "provider error"
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes every ProviderError match ErrProvider.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Message returns text suitable for showing to an end user.
func (e *ProviderError) Message() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Code != "":
		return e.Code
	default:
		return "the identity provider rejected the request"
	}
}
