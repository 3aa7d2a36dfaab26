package service

import (
	"context"
	"fmt"
	"log/slog"

	"analyzeit/internal/modules/cloudsync/domain"
	syncout "analyzeit/internal/modules/cloudsync/port/out"
	"analyzeit/internal/platform/clock"
	"analyzeit/internal/platform/id"
	"analyzeit/internal/platform/serial"
)

// FlushService pushes local buckets to the remote aggregate. Runs never
// overlap: each one sees the buckets the previous one left behind.
type FlushService struct {
	buckets    syncout.BucketSource
	aggregates syncout.AggregateStore
	identity   syncout.IdentityResolver
	ticker     syncout.SessionTicker
	clock      clock.Clock
	ids        id.Generator
	logger     *slog.Logger
	queue      *serial.Queue
}

func NewFlushService(
	buckets syncout.BucketSource,
	aggregates syncout.AggregateStore,
	identity syncout.IdentityResolver,
	ticker syncout.SessionTicker,
	clk clock.Clock,
	ids id.Generator,
	logger *slog.Logger,
) *FlushService {
	return &FlushService{
		buckets:    buckets,
		aggregates: aggregates,
		identity:   identity,
		ticker:     ticker,
		clock:      clk,
		ids:        ids,
		logger:     logger,
		queue:      serial.New(),
	}
}

func (s *FlushService) Flush(ctx context.Context) (domain.Result, error) {
	var result domain.Result
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.run(ctx)
		return err
	})
	return result, err
}

func (s *FlushService) run(ctx context.Context) (domain.Result, error) {
	result := domain.Result{RunID: s.ids.New()}
	logger := s.logger.With("run_id", result.RunID)

	if s.ticker != nil {
		if err := s.ticker.Tick(ctx); err != nil {
			logger.Warn("flush_tick_failed", "error", err)
		}
	}
	uid, ok, err := s.identity.CurrentUID(ctx)
	if err != nil {
		return result, fmt.Errorf("resolve identity: %w", err)
	}
	if !ok {
		result.NoIdentity = true
		logger.Debug("flush_skipped_no_identity")
		return result, nil
	}

	pending, err := s.buckets.Pending(ctx)
	if err != nil {
		return result, fmt.Errorf("list pending buckets: %w", err)
	}
	result.Buckets = len(pending)
	for _, bucket := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.flushBucket(ctx, logger, uid, bucket, &result)
	}
	if result.Buckets > 0 {
		logger.Info("flush_completed", "buckets", result.Buckets, "flushed", result.Flushed, "skipped", result.Skipped, "failed", result.Failed, "seconds", result.Seconds)
	}
	return result, nil
}

// flushBucket pushes a bucket part by part. Each part is settled locally as
// soon as the remote accepts it, so a failure midway leaves only the unsent
// parts behind and seconds added during the write stay pending.
func (s *FlushService) flushBucket(ctx context.Context, logger *slog.Logger, uid string, bucket domain.PendingBucket, result *domain.Result) {
	var applied int
	var seconds int64
	for _, part := range domain.SplitBucket(bucket, domain.SitesPerUpdate) {
		update, ok := domain.BuildUpdate(part)
		if ok {
			if err := s.aggregates.Apply(ctx, uid, update, s.clock.Now().UTC()); err != nil {
				logger.Warn("bucket_flush_failed", "key", bucket.Key, "error", err)
				result.Failed++
				result.Seconds += seconds
				return
			}
			applied++
			seconds += update.TotalSeconds
		}
		if err := s.buckets.Settle(ctx, part); err != nil {
			logger.Error("bucket_settle_failed", "key", bucket.Key, "error", err)
		}
	}
	result.Seconds += seconds
	if applied == 0 {
		result.Skipped++
		return
	}
	result.Flushed++
	logger.Debug("bucket_flushed", "key", bucket.Key, "seconds", seconds, "parts", applied)
}

func (s *FlushService) Close() {
	s.queue.Close()
}
