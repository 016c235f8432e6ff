// Package pkg holds utilities shared across the server.
// This file defines the domain-level errors.
//
// Services return these sentinels (usually wrapped with fmt.Errorf("%w: ...")),
// handlers map them to HTTP status codes via errors.Is:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
package pkg

import "errors"

// Domain-level errors.
var (
	// ErrValidation: malformed or empty required input (session name,
	// member name, message content). Caller re-prompts.
	ErrValidation = errors.New("validation error")

	// ErrNotFound: unknown session id/code, message or participant.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: write against a Closed session or an illegal
	// lifecycle transition (ending an already-ended session).
	ErrInvalidState = errors.New("invalid state")

	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrInternal      = errors.New("internal error")
)
