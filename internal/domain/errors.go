package domain

import "errors"

// Error taxonomy. Every failure in the core wraps one of these so callers can
// decide scope: Unauthorized terminates the connection attempt, NotInRoom and
// StorageUnavailable reject a single message, ResponderFailed is swallowed.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotInRoom          = errors.New("not joined to any room")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrResponderFailed    = errors.New("responder failed")
)
