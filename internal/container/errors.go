package container

import (
	"errors"
	"fmt"
)

// Reason classifies why a container header was rejected.
type Reason string

const (
	// ReasonTooSmall means the input cannot hold the magic and size fields.
	ReasonTooSmall Reason = "TooSmall"
	// ReasonBadMagic means the leading magic number is wrong.
	ReasonBadMagic Reason = "BadMagic"
	// ReasonBadEncryptedSize means the payload size is zero or exceeds the input.
	ReasonBadEncryptedSize Reason = "BadEncryptedSize"
	// ReasonHeaderTooSmall means the header cannot hold the bytecode region and one block.
	ReasonHeaderTooSmall Reason = "HeaderTooSmall"
)

// Sentinel errors, one per reason, for use with errors.Is.
var (
	ErrTooSmall         = errors.New("file too small to be valid metadata")
	ErrBadMagic         = errors.New("invalid magic number")
	ErrBadEncryptedSize = errors.New("invalid encrypted size")
	ErrHeaderTooSmall   = errors.New("header too small for bytecode extraction")
)

// FormatError is returned by Parse when the header fails validation.
// All format errors are fatal and are raised before any transform runs.
type FormatError struct {
	Reason Reason
	// Detail holds the offending value where one exists (magic, sizes).
	Detail string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	msg := e.sentinel().Error()
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

// Unwrap lets errors.Is match the per-reason sentinel.
func (e *FormatError) Unwrap() error {
	return e.sentinel()
}

func (e *FormatError) sentinel() error {
	switch e.Reason {
	case ReasonTooSmall:
		return ErrTooSmall
	case ReasonBadMagic:
		return ErrBadMagic
	case ReasonBadEncryptedSize:
		return ErrBadEncryptedSize
	case ReasonHeaderTooSmall:
		return ErrHeaderTooSmall
	default:
		return errors.New("invalid container format")
	}
}

func formatErrorf(reason Reason, format string, args ...interface{}) *FormatError {
	return &FormatError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
