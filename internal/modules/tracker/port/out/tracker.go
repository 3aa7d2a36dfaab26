package out

import (
	"context"
	"time"
)

// Accumulator credits seconds of one domain starting at occurredAt.
type Accumulator interface {
	Accumulate(ctx context.Context, domain string, seconds int64, occurredAt time.Time) error
}
