package storage

import (
	"context"
	"time"
)

// Entry is one persisted client storage value.
type Entry struct {
	SessionID string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Repository persists per-session client storage, the server-side stand-in for browser local storage.
type Repository interface {
	Get(ctx context.Context, sessionID, key string) (*Entry, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error
	DeleteSession(ctx context.Context, sessionID string) error
	// Touch marks every value of the session as used now.
	Touch(ctx context.Context, sessionID string) error
	// DeleteIdle removes values not written or touched since before and reports how many went.
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}
