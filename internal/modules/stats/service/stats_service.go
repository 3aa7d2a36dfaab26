package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"analyzeit/internal/modules/stats/domain"
	statsout "analyzeit/internal/modules/stats/port/out"
	apperrors "analyzeit/internal/platform/errors"
	"analyzeit/internal/platform/serial"
)

// StatsService owns the local bucket store. Every read-modify-write goes
// through one serial queue, so concurrent callers never lose increments.
type StatsService struct {
	store    statsout.BucketStore
	overlay  statsout.OverlayLookup
	catalog  statsout.DefaultCatalog
	fallback string
	loc      *time.Location
	logger   *slog.Logger
	queue    *serial.Queue
}

func NewStatsService(
	store statsout.BucketStore,
	overlay statsout.OverlayLookup,
	catalog statsout.DefaultCatalog,
	fallback string,
	loc *time.Location,
	logger *slog.Logger,
) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{
		store:    store,
		overlay:  overlay,
		catalog:  catalog,
		fallback: fallback,
		loc:      loc,
		logger:   logger,
		queue:    serial.New(),
	}
}

func (s *StatsService) Accumulate(ctx context.Context, domainName string, seconds int64, occurredAt time.Time) (string, []domain.BucketKey, error) {
	domainName = strings.TrimSpace(domainName)
	if domainName == "" {
		return "", nil, fmt.Errorf("%w: domain is required", apperrors.ErrInvalidInput)
	}
	if seconds <= 0 {
		return "", nil, fmt.Errorf("%w: seconds must be positive", apperrors.ErrInvalidInput)
	}

	var category string
	var keys []domain.BucketKey
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		category = s.resolveCategory(ctx, domainName)
		for _, segment := range domain.SplitByHour(occurredAt, seconds, s.loc) {
			if err := s.addToBucket(ctx, segment.Key, category, domainName, segment.Seconds); err != nil {
				return err
			}
			keys = append(keys, segment.Key)
			s.logger.Debug("seconds_stored", "domain", domainName, "category", category, "key", segment.Key.String(), "seconds", segment.Seconds)
		}
		return nil
	})
	if err != nil {
		return "", keys, err
	}
	return category, keys, nil
}

func (s *StatsService) addToBucket(ctx context.Context, key domain.BucketKey, category, domainName string, seconds int64) error {
	bucket, err := s.load(ctx, key.String())
	if err != nil {
		return err
	}
	bucket.Add(category, domainName, seconds)
	payload, err := domain.EncodeBucket(bucket)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, key.String(), payload); err != nil {
		return fmt.Errorf("store bucket %s: %w", key, err)
	}
	return nil
}

func (s *StatsService) load(ctx context.Context, key string) (domain.Bucket, error) {
	payload, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load bucket %s: %w", key, err)
	}
	if !ok {
		return domain.Bucket{}, nil
	}
	return domain.DecodeBucket(payload)
}

// resolveCategory applies overlay, then the default table, then the fallback.
func (s *StatsService) resolveCategory(ctx context.Context, domainName string) string {
	if s.overlay != nil {
		category, ok, err := s.overlay.Lookup(ctx, domainName)
		if err != nil {
			s.logger.Warn("overlay_lookup_failed", "domain", domainName, "error", err)
		} else if ok && category != "" {
			return category
		}
	}
	if s.catalog != nil {
		if category, ok := s.catalog.Lookup(domainName); ok && category != "" {
			return category
		}
	}
	return s.fallback
}

// Pending returns every well-formed bucket in key order. Malformed keys and
// undecodable payloads are logged and left alone.
func (s *StatsService) Pending(ctx context.Context) ([]domain.StoredBucket, error) {
	var out []domain.StoredBucket
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		records, err := s.store.List(ctx, domain.KeyPrefix)
		if err != nil {
			return fmt.Errorf("list buckets: %w", err)
		}
		out = s.decodeRecords(records)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *StatsService) Day(ctx context.Context, date string) ([]domain.StoredBucket, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", apperrors.ErrInvalidInput)
	}
	var out []domain.StoredBucket
	err := s.queue.Do(ctx, func(ctx context.Context) error {
		records, err := s.store.List(ctx, domain.KeyPrefix+date+"_")
		if err != nil {
			return fmt.Errorf("list buckets: %w", err)
		}
		out = s.decodeRecords(records)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *StatsService) decodeRecords(records []domain.Record) []domain.StoredBucket {
	out := make([]domain.StoredBucket, 0, len(records))
	for _, record := range records {
		key, err := domain.ParseKey(record.Key)
		if err != nil {
			s.logger.Warn("bucket_key_skipped", "key", record.Key, "error", err)
			continue
		}
		bucket, err := domain.DecodeBucket(record.Payload)
		if err != nil {
			s.logger.Warn("bucket_payload_skipped", "key", record.Key, "error", err)
			continue
		}
		out = append(out, domain.StoredBucket{Key: key, Bucket: bucket})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Settle takes seconds that reached the remote out of the stored bucket.
// Seconds accumulated after the bucket was read stay behind for the next
// flush; the row goes away only when nothing is left.
func (s *StatsService) Settle(ctx context.Context, key string, flushed domain.Bucket) error {
	if _, err := domain.ParseKey(key); err != nil {
		return err
	}
	return s.queue.Do(ctx, func(ctx context.Context) error {
		payload, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load bucket %s: %w", key, err)
		}
		if !ok {
			return nil
		}
		bucket, err := domain.DecodeBucket(payload)
		if err != nil {
			return fmt.Errorf("settle bucket %s: %w", key, err)
		}
		bucket.Subtract(flushed)
		if len(bucket) == 0 {
			if err := s.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete bucket %s: %w", key, err)
			}
			return nil
		}
		payload, err = domain.EncodeBucket(bucket)
		if err != nil {
			return err
		}
		if err := s.store.Put(ctx, key, payload); err != nil {
			return fmt.Errorf("store bucket %s: %w", key, err)
		}
		return nil
	})
}

func (s *StatsService) Clear(ctx context.Context) error {
	return s.queue.Do(ctx, func(ctx context.Context) error {
		if err := s.store.DeletePrefix(ctx, domain.KeyPrefix); err != nil {
			return fmt.Errorf("clear buckets: %w", err)
		}
		return nil
	})
}

func (s *StatsService) Close() {
	s.queue.Close()
}

// IsInvalidInput reports whether err came from caller input rather than I/O.
func IsInvalidInput(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrMalformedKey)
}
