package auth

import "errors"

var (
	// ErrUnauthorized indicates a request without a usable bearer token.
	ErrUnauthorized = errors.New("auth: missing or invalid bearer token")
	// ErrForbidden indicates the caller's role does not cover the endpoint.
	ErrForbidden = errors.New("auth: role not allowed for this endpoint")
	// ErrInvalidToken indicates a token that failed validation.
	ErrInvalidToken = errors.New("auth: token rejected")
)
