package main

import (
	"errors"

	"github.com/kenneth/metadata-decryptor/internal/container"
	"github.com/kenneth/metadata-decryptor/internal/crypto"
	"github.com/kenneth/metadata-decryptor/internal/storage"
)

const (
	errorClassSignatureMismatch = "SignatureMismatch"
	errorClassInternal          = "Internal"
)

// ErrorClass returns a short, stable name for err, used as a metrics label
// and in audit events. It returns "" for a nil error.
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}

	var formatErr *container.FormatError
	if errors.As(err, &formatErr) {
		return string(formatErr.Reason)
	}

	var ioErr *storage.IOError
	if errors.As(err, &ioErr) {
		return string(ioErr.Reason)
	}

	if errors.Is(err, crypto.ErrSignatureMismatch) {
		return errorClassSignatureMismatch
	}

	return errorClassInternal
}
