package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the presentation layer knows how to report it.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation: bad or missing input, reported inline, no mutation.
	KindValidation
	// KindTransport: network/server failure, surfaced as a notice, retry by hand.
	KindTransport
	// KindStale: the selection or target vanished; treated as "nothing selected".
	KindStale
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindStale:
		return "stale"
	default:
		return "unknown"
	}
}

var (
	ErrNothingSelected = errors.New("nothing selected")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownZone     = errors.New("unknown zone")
	ErrUnknownBlock    = errors.New("unknown block")
	ErrSaveInProgress  = errors.New("save already in progress")
	ErrAborted         = errors.New("aborted by user")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("role not allowed")
	ErrNoSite          = errors.New("no active site")
)

// Error carries the operation and the kind of a failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets a stale error match ErrNothingSelected: stale state is reported
// to callers exactly like an empty selection.
func (e *Error) Is(target error) bool {
	return e.Kind == KindStale && target == ErrNothingSelected
}

func Validation(op string, err error) error { return &Error{Kind: KindValidation, Op: op, Err: err} }
func Transport(op string, err error) error  { return &Error{Kind: KindTransport, Op: op, Err: err} }
func Stale(op string, err error) error      { return &Error{Kind: KindStale, Op: op, Err: err} }

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
