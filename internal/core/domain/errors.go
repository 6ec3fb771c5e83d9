package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery    = errors.New("invalid query")
	ErrOutcomeNotFound = errors.New("outcome not found")
	ErrCancelled       = errors.New("session cancelled")
	ErrTemporary       = errors.New("temporary failure")

	// Backend error kinds. All of them mark a tier as unavailable and
	// let the retrieval loop continue, except ErrAuthFailure which
	// aborts the whole session.
	ErrTimeout     = errors.New("backend timeout")
	ErrRateLimited = errors.New("backend rate limited")
	ErrAuthFailure = errors.New("backend auth failure")
	ErrUnreachable = errors.New("backend unreachable")
	ErrMalformed   = errors.New("backend response malformed")
)

var (
	errEmptyQuery   = errors.New("query text is empty")
	errQueryTooLong = fmt.Errorf("query text exceeds %d characters", MaxQueryLength)
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsRecoverableBackendError reports whether a tier failure should be
// absorbed into the escalation loop instead of aborting the session.
func IsRecoverableBackendError(err error) bool {
	return IsKind(err, ErrTimeout) ||
		IsKind(err, ErrRateLimited) ||
		IsKind(err, ErrUnreachable) ||
		IsKind(err, ErrMalformed)
}
