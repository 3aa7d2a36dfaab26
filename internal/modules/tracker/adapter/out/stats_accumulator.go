package out

import (
	"context"
	"time"

	"analyzeit/internal/modules/stats/dto"
	statsin "analyzeit/internal/modules/stats/port/in"
	trackerout "analyzeit/internal/modules/tracker/port/out"
)

type StatsAccumulator struct {
	stats statsin.Usecase
}

func NewStatsAccumulator(stats statsin.Usecase) trackerout.Accumulator {
	return &StatsAccumulator{stats: stats}
}

func (a *StatsAccumulator) Accumulate(ctx context.Context, domain string, seconds int64, occurredAt time.Time) error {
	_, err := a.stats.Accumulate(ctx, dto.AccumulateInput{Domain: domain, Seconds: seconds, OccurredAt: occurredAt})
	return err
}
