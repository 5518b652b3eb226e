package service

import "errors"

var (
	// File, folder or upload doesn't exist or isn't owned by the caller
	ErrNotFound = errors.New("not found")
	// Request is malformed, e.g. a part number out of range
	ErrInvalidArgument = errors.New("invalid argument")
	// Operation isn't allowed in the current lifecycle state
	ErrInvalidState = errors.New("invalid state")

	// Object storage couldn't be reached or failed transiently
	ErrStorageUnavailable = errors.New("storage unavailable")
	// Object storage answered with a definitive error
	ErrStorageRejected = errors.New("storage rejected request")
)
