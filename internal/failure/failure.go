package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a Failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindParse
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

var (
	ErrNetwork  = &Failure{Kind: KindNetwork, Message: "network failure"}
	ErrParse    = &Failure{Kind: KindParse, Message: "parse failure"}
	ErrNotFound = &Failure{Kind: KindNotFound, Message: "not found"}
)

// Failure wraps an underlying error with the kind of failure it represents.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the message followed by the wrapped error, if any.
func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches any Failure of the same kind, so errors.Is(err, ErrNetwork)
// works for every network failure regardless of message.
func (f *Failure) Is(target error) bool {
	var t *Failure
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == f.Kind
}

// Network returns a Failure for transport errors and non-success responses.
func Network(err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Kind: KindNetwork, Message: "network failure", Err: err}
}

// Networkf builds a network Failure from a formatted message.
func Networkf(format string, args ...any) error {
	return &Failure{Kind: KindNetwork, Message: "network failure", Err: fmt.Errorf(format, args...)}
}

// Parse returns a Failure for malformed payloads.
func Parse(err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Kind: KindParse, Message: "parse failure", Err: err}
}

// NotFound returns a Failure naming the missing todo id.
func NotFound(id int) error {
	return &Failure{Kind: KindNotFound, Message: fmt.Sprintf("todo %d not found", id)}
}

// KindOf returns the Kind of err, or KindUnknown when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }
func IsParse(err error) bool   { return KindOf(err) == KindParse }
