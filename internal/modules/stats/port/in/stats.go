package in

import (
	"context"

	"analyzeit/internal/modules/stats/dto"
)

type Usecase interface {
	Accumulate(ctx context.Context, input dto.AccumulateInput) (dto.AccumulateOutput, error)
	PendingBuckets(ctx context.Context) ([]dto.BucketOutput, error)
	SettleBucket(ctx context.Context, input dto.SettleInput) error
	Clear(ctx context.Context) error
	DaySummary(ctx context.Context, date string) (dto.DaySummaryOutput, error)
}
