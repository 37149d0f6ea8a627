package domain

import "errors"

// Authentication and authorization.
var (
	ErrUnauthenticated    = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// Edge admission and upstream failures.
var (
	ErrRateLimited         = errors.New("rate limit exceeded, please try again later")
	ErrUpstreamUnavailable = errors.New("service unavailable")
	ErrUpstreamTimeout     = errors.New("request timed out, please try again later")
	ErrRouteNotFound       = errors.New("route not found")
)

// Resource and publication errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrUnknownSection  = errors.New("unknown section")
	ErrMissingIdentity = errors.New("missing user context")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSlugNotFound    = errors.New("portfolio not found or not published")
	ErrSlugTaken       = errors.New("slug already taken")
)
