package in

import (
	"context"

	"analyzeit/internal/modules/stats/dto"
	statsin "analyzeit/internal/modules/stats/port/in"
)

type CLIHandler struct {
	usecase statsin.Usecase
}

func NewCLIHandler(usecase statsin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Today(ctx context.Context, date string) (dto.DaySummaryOutput, error) {
	return h.usecase.DaySummary(ctx, date)
}

func (h CLIHandler) Pending(ctx context.Context) ([]dto.BucketOutput, error) {
	return h.usecase.PendingBuckets(ctx)
}
