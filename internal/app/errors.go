package app

import "errors"

// ErrRecordNotFound and related errors describe storage and payload failures.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrMalformedRecord = errors.New("malformed record")
	ErrPersist         = errors.New("persist activities")
	ErrDuplicateID     = errors.New("duplicate activity id")
)
