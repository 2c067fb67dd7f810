package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrNoPrice indicates the product has no price for the requested kind.
	ErrNoPrice = errors.New("no price for requested kind")

	// ErrAlreadyDecided indicates the order already left the state the
	// operation expected; the caller lost a moderation race or retried.
	ErrAlreadyDecided = errors.New("order already decided")
)
