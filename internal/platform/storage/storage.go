package storage

import (
	"context"
	"io"
)

// Storage persists uploaded files (submission answers, problem attachments,
// avatars) under opaque keys. The core never depends on the backend identity.
type Storage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
