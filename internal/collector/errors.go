package collector

import (
	"errors"
	"fmt"
)

// Kind classifies a failed fetch.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindRateLimited
	KindInvalidShape
	KindEmpty
)

var (
	ErrNetwork      = errors.New("network error")
	ErrRateLimited  = errors.New("rate limited")
	ErrInvalidShape = errors.New("invalid response shape")
	ErrEmpty        = errors.New("no usable data")

	// ErrInvalidSymbol is returned before any request is made.
	ErrInvalidSymbol = errors.New("symbol is required")
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidShape:
		return "invalid_shape"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindRateLimited:
		return ErrRateLimited
	case KindInvalidShape:
		return ErrInvalidShape
	case KindEmpty:
		return ErrEmpty
	default:
		return nil
	}
}

// FetchError is the failure variant of every fetch. errors.Is matches it
// against the Err* sentinel of its Kind and against the wrapped cause.
type FetchError struct {
	Kind     Kind
	Endpoint string
	Status   int    // HTTP status, 0 when no response was received
	Msg      string // server-supplied or validation message
	Err      error
}

func (e *FetchError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Endpoint, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Endpoint, e.Kind, msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of err, or 0 when err is not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
