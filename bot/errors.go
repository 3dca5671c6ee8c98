package bot

import (
	"errors"
	"fmt"

	"github.com/gemuki/bot/steam"
	"github.com/gemuki/bot/store"
)

// ErrorClass decides which reply a failed command gets and whether it is logged.
type ErrorClass int

const (
	// ErrorClassValidation covers bad input and disallowed transitions.
	ErrorClassValidation ErrorClass = iota
	// ErrorClassNotFound covers references to entities that do not exist for the caller.
	ErrorClassNotFound
	// ErrorClassStorage covers database failures.
	ErrorClassStorage
	// ErrorClassTransport covers Discord and Steam failures.
	ErrorClassTransport
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassValidation:
		return "validation"
	case ErrorClassNotFound:
		return "not_found"
	case ErrorClassStorage:
		return "storage"
	case ErrorClassTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Logged reports whether errors of this class are logged at error level.
func (ec ErrorClass) Logged() bool {
	return ec == ErrorClassStorage || ec == ErrorClassTransport
}

// ValidationError carries the message shown to the user for rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names the entity that could not be found.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// TransportError wraps a failure of an external service.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string { return e.Service + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// lookup names a store.ErrNotFound after what was looked up and passes other errors through.
func lookup(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{What: fmt.Sprintf(format, args...)}
	}
	return err
}

// Classify maps an error to its class. Errors nobody classified are storage errors.
func Classify(err error) ErrorClass {
	var ve *ValidationError
	var te *TransportError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrKeyUsed),
		errors.Is(err, store.ErrInvalidState):
		return ErrorClassValidation
	case errors.Is(err, store.ErrNotFound), errors.Is(err, steam.ErrAppNotFound):
		return ErrorClassNotFound
	case errors.As(err, &te):
		return ErrorClassTransport
	default:
		return ErrorClassStorage
	}
}

// ReplyFor returns the single message the invoking user sees for err.
func ReplyFor(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var te *TransportError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, store.ErrConflict):
		return "That name is already taken."
	case errors.Is(err, store.ErrKeyUsed):
		return "That key has already been claimed."
	case errors.Is(err, store.ErrInvalidState):
		return "The raffle is not in a state that allows this."
	case errors.As(err, &nf):
		return "Could not find " + nf.What + "."
	case errors.Is(err, steam.ErrAppNotFound):
		return "Steam has no store page for that app."
	case errors.Is(err, store.ErrNotFound):
		return "Nothing found."
	case errors.As(err, &te):
		return fmt.Sprintf("Could not reach %s. Please try again later.", te.Service)
	default:
		return "Something went wrong while saving or loading data. Please try again later."
	}
}
