package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStaleStatus is returned by CompareAndSetStatus when the stored
	// status no longer matches the status the caller observed. The caller
	// must re-read and retry or give up.
	ErrStaleStatus = errors.New("booking status changed since last read")

	// ErrDuplicateEntry is returned when appending a driver that is already
	// queued.
	ErrDuplicateEntry = errors.New("driver already in queue")
)
