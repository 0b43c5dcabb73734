package app

import (
	"context"
	"time"
)

// RecordStorage is the durable key-value store the activity list is saved to.
// ReadRecord returns ErrRecordNotFound when key has never been written.
type RecordStorage interface {
	ReadRecord(context.Context, string) ([]byte, error)
	WriteRecord(context.Context, string, []byte) error
}

// Logger receives diagnostics the store recovers from on its own.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time
