package core

import (
	"errors"

	"github.com/vovakirdan/tunesync-server/internal/store"
)

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeConflict     = "conflict"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeUnavailable  = "unavailable"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func errRoomNotFound() *CoreError {
	return coreError(ErrCodeRoomNotFound, "room not found")
}

func errUnauthorized() *CoreError {
	return coreError(ErrCodeUnauthorized, "wrong password")
}

func errInvalidInput(msg string) *CoreError {
	return coreError(ErrCodeInvalidInput, msg)
}

// storeError maps a store failure onto the domain taxonomy. Unexpected
// store failures surface as unavailable, never silently swallowed.
func storeError(err error) *CoreError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errRoomNotFound()
	case errors.Is(err, store.ErrConflict):
		return coreError(ErrCodeConflict, "concurrent update, try again")
	default:
		return coreError(ErrCodeUnavailable, "room store unavailable")
	}
}
