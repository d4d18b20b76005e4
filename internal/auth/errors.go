// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Empauth Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Failure kinds. Every error returned by the Manager either matches exactly
// one of these with errors.Is or is an internal failure.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// ErrNotAuthenticated is an Unauthorized failure for requests that carry no
// credentials at all.
var ErrNotAuthenticated = newFailure(ErrUnauthorized, "Not authenticated")

// errInternal marks internal failures that still carry a client message.
var errInternal = errors.New("internal error")

// Kind classifies an error for callers that translate failures into
// transport status codes.
type Kind string

// Error kinds.
const (
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindBadRequest   Kind = "bad_request"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

// internalMessage is shown to clients for any failure that is not a
// caller mistake.
const internalMessage = "Internal server error"

// failure carries a user-safe message and its kind sentinel.
type failure struct {
	kind error
	msg  string
}

func (f *failure) Error() string { return f.msg }

func (f *failure) Is(target error) bool { return target == f.kind }

// newFailure returns an error matching kind whose message is safe to show
// to the client.
func newFailure(kind error, msg string) error {
	return &failure{kind: kind, msg: msg}
}

// fail builds a coded error of the given kind.
func fail(code string, kind error, msg string) error {
	return oops.Code(code).Wrap(newFailure(kind, msg))
}

// KindOf reports the kind of err. Nil yields the empty kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// PublicMessage returns the message that may be shown to the client for err.
// Internal failures never leak their cause.
func PublicMessage(err error) string {
	var f *failure
	if errors.As(err, &f) {
		return f.msg
	}
	if KindOf(err) == KindNotFound {
		return "Not found"
	}
	return internalMessage
}
