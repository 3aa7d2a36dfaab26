package out

import (
	"context"

	"analyzeit/internal/modules/stats/domain"
)

// BucketStore is the durable local key/value store. Only the stats service
// touches it, always from its serial queue.
type BucketStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
	List(ctx context.Context, prefix string) ([]domain.Record, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// OverlayLookup returns the user's category override for a domain.
type OverlayLookup interface {
	Lookup(ctx context.Context, domain string) (string, bool, error)
}

type DefaultCatalog interface {
	Lookup(domain string) (string, bool)
}
