package service

import "errors"

// Error kinds returned by FileService. They are wrapped together with their
// cause, so check them with errors.Is.
var (
	// ErrInvalidInput marks a user-fixable request shape problem.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means no record with that id exists for the caller.
	ErrNotFound = errors.New("file not found")
	// ErrObjectMissing means the record exists but its object does not.
	ErrObjectMissing = errors.New("file object missing from storage")
	// ErrUnsupportedPreviewType is returned for anything but images and PDFs.
	ErrUnsupportedPreviewType = errors.New("preview not available for this file type")

	ErrStorageWriteFailed   = errors.New("storage write failed")
	ErrStorageSigningFailed = errors.New("storage signing failed")
	ErrStorageUnavailable   = errors.New("storage unavailable")

	// ErrStoreUnavailable wraps metadata store failures.
	ErrStoreUnavailable = errors.New("metadata store unavailable")
)
