package storage

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/aws/smithy-go"
)

// IOReason classifies a fatal storage failure.
type IOReason string

const (
	// ReasonCannotOpenInput means the input container could not be read.
	ReasonCannotOpenInput IOReason = "CannotOpenInput"
	// ReasonCannotCreateOutput means the decrypted output could not be written.
	ReasonCannotCreateOutput IOReason = "CannotCreateOutput"
)

// IOError is returned when a location cannot be read or written.
type IOError struct {
	Reason   IOReason
	Location string
	// Code is a short classification of the underlying failure
	// (NotFound, AccessDenied, NoSuchBucket, ...), empty when unknown.
	Code string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	var action string
	switch e.Reason {
	case ReasonCannotOpenInput:
		action = "cannot open input file"
	case ReasonCannotCreateOutput:
		action = "cannot create output file"
	default:
		action = "storage error"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s): %v", action, e.Location, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", action, e.Location, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

func newIOError(reason IOReason, location string, err error) *IOError {
	return &IOError{
		Reason:   reason,
		Location: location,
		Code:     classifyError(err),
		Err:      err,
	}
}

// classifyError maps filesystem and S3 API errors to a short code.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return "NotFound"
		case "NoSuchBucket":
			return "NoSuchBucket"
		case "AccessDenied", "Forbidden":
			return "AccessDenied"
		case "InvalidBucketName":
			return "InvalidBucketName"
		default:
			return apiErr.ErrorCode()
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "NotFound"
	case errors.Is(err, fs.ErrPermission):
		return "AccessDenied"
	case errors.Is(err, fs.ErrExist):
		return "AlreadyExists"
	}
	return ""
}
