package imageio

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can decide whether to abort or continue a batch.
type Kind int

const (
	KindUnknown Kind = iota
	KindPathNotFound
	KindDecode
	KindEncode
	KindInvalidParameter
)

// Sentinel errors matched by errors.Is against any *Error of the same kind.
var (
	ErrPathNotFound     = errors.New("path not found")
	ErrDecode           = errors.New("decode error")
	ErrEncode           = errors.New("encode error")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPathNotFound:
		return "PathNotFound"
	case KindDecode:
		return "DecodeError"
	case KindEncode:
		return "EncodeError"
	case KindInvalidParameter:
		return "InvalidParameter"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPathNotFound:
		return ErrPathNotFound
	case KindDecode:
		return ErrDecode
	case KindEncode:
		return ErrEncode
	case KindInvalidParameter:
		return ErrInvalidParameter
	default:
		return nil
	}
}

// Error is an image processing failure tied to a path.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewError builds an *Error of the given kind.
func NewError(kind Kind, path string, err error) error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// InvalidParameterf reports a rejected user-supplied value.
func InvalidParameterf(format string, args ...any) error {
	return &Error{Kind: KindInvalidParameter, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
