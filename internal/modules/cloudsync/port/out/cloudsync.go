package out

import (
	"context"
	"time"

	"analyzeit/internal/modules/cloudsync/domain"
)

// BucketSource lists local buckets and settles the parts already pushed.
// Settle subtracts the given totals from the live bucket and removes it once
// nothing is left.
type BucketSource interface {
	Pending(ctx context.Context) ([]domain.PendingBucket, error)
	Settle(ctx context.Context, flushed domain.PendingBucket) error
}

// AggregateStore applies an additive update to the user's daily aggregate.
type AggregateStore interface {
	Apply(ctx context.Context, uid string, update domain.Update, syncedAt time.Time) error
}

// SessionTicker moves in-flight session time into local buckets.
type SessionTicker interface {
	Tick(ctx context.Context) error
}

type IdentityResolver interface {
	CurrentUID(ctx context.Context) (string, bool, error)
}
