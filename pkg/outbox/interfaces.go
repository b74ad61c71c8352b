package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg DispatchedMessage) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg DispatchedMessage) error {
	return f(ctx, msg)
}

// Store is the relay's view of one outbox table.
type Store interface {
	Claim(ctx context.Context, now, lockCutoff time.Time, maxAttempts, limit int) ([]Claimed, error)
	Ack(ctx context.Context, id uuid.UUID) error
	Nack(ctx context.Context, id uuid.UUID, lastError string, nextAvailable time.Time) error
	Dead(ctx context.Context, id uuid.UUID, lastError string) error
	Depth(ctx context.Context) (pending, locked int64, err error)
	Purge(ctx context.Context, publishedBefore time.Time) (int64, error)
}
