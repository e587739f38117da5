package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownStrategy = fmt.Errorf("unknown strategy: %w", ErrInvalidInput)
	ErrConfiguration   = errors.New("configuration error")
	ErrConnection      = errors.New("connection failure")
	ErrGeneration      = errors.New("generation failure")
	ErrRetrieval       = errors.New("retrieval failure")
	ErrTemporary       = errors.New("temporary failure")
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

// KindOf returns a stable name for the most specific error kind in err's chain.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownStrategy):
		return "unknown_strategy"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrTemporary):
		return "temporary"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrRetrieval):
		return "retrieval"
	default:
		return "internal"
	}
}

// KindFromName is the inverse of KindOf; unknown names map to nil.
func KindFromName(name string) error {
	switch name {
	case "unknown_strategy":
		return ErrUnknownStrategy
	case "invalid_input":
		return ErrInvalidInput
	case "configuration":
		return ErrConfiguration
	case "connection":
		return ErrConnection
	case "temporary":
		return ErrTemporary
	case "generation":
		return ErrGeneration
	case "retrieval":
		return ErrRetrieval
	default:
		return nil
	}
}
