package pqerr

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDecode      = errors.New("decode_error")
	ErrParse       = errors.New("parse_error")
	ErrNoChannels  = errors.New("no_channels")
	ErrNoDevice    = errors.New("no_device")
	ErrPersistence = errors.New("persistence_error")
	ErrValidation  = errors.New("validation_error")
)

// Kind classifies a failure at the file boundary of an import or export.
type Kind string

const (
	KindNone        Kind = ""
	KindDecode      Kind = "decode"
	KindParse       Kind = "parse"
	KindNoChannels  Kind = "no_channels"
	KindNoDevice    Kind = "no_device"
	KindPersistence Kind = "persistence"
	KindValidation  Kind = "validation"
	KindCanceled    Kind = "canceled"
	KindUnknown     Kind = "unknown"
)

// KindOf reports the most specific kind found in err's chain.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrNoChannels):
		return KindNoChannels
	case errors.Is(err, ErrNoDevice):
		return KindNoDevice
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// Decodef wraps a malformed series blob failure.
func Decodef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

// Parsef wraps a grammar failure in a PQDS or PQDIF file.
func Parsef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// Validationf wraps an input that was rejected before reaching storage.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Persistence wraps a repository failure. Already classified errors pass through.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if k := KindOf(err); k != KindUnknown && k != KindCanceled {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
