package out

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"analyzeit/internal/modules/cloudsync/domain"
	"analyzeit/internal/modules/cloudsync/service"
	statsoutadapter "analyzeit/internal/modules/stats/adapter/out"
	statsdto "analyzeit/internal/modules/stats/dto"
	statsin "analyzeit/internal/modules/stats/port/in"
	statsservice "analyzeit/internal/modules/stats/service"
	statsusecase "analyzeit/internal/modules/stats/usecase"
	"analyzeit/internal/platform/clock"
	"analyzeit/internal/platform/id"
)

type productiveCatalog struct{}

func (productiveCatalog) Lookup(string) (string, bool) { return "Productive", true }

type signedIn struct{}

func (signedIn) CurrentUID(context.Context) (string, bool, error) { return "u1", true, nil }

// busyRemote records pushed seconds and runs duringApply while each write
// is in flight.
type busyRemote struct {
	mu          sync.Mutex
	seconds     int64
	duringApply func()
}

func (r *busyRemote) Apply(_ context.Context, _ string, update domain.Update, _ time.Time) error {
	if r.duringApply != nil {
		r.duringApply()
		r.duringApply = nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seconds += update.TotalSeconds
	return nil
}

func newLocalStats(t *testing.T) statsin.Usecase {
	t.Helper()
	store, err := statsoutadapter.NewSQLiteBucketStore(filepath.Join(t.TempDir(), "analyzeit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := statsservice.NewStatsService(store, nil, productiveCatalog{}, "Utilities", time.UTC, logger)
	t.Cleanup(func() {
		svc.Close()
		_ = store.Close()
	})
	return statsusecase.NewInteractor(svc)
}

func localSeconds(t *testing.T, stats statsin.Usecase) int64 {
	t.Helper()
	buckets, err := stats.PendingBuckets(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	var total int64
	for _, bucket := range buckets {
		for _, cat := range bucket.Categories {
			total += cat.TotalSeconds
		}
	}
	return total
}

func TestFlushKeepsSecondsAccumulatedDuringRemoteWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stats := newLocalStats(t)
	at := time.Date(2026, 1, 19, 14, 0, 0, 0, time.UTC)
	if _, err := stats.Accumulate(ctx, statsdto.AccumulateInput{Domain: "github.com", Seconds: 90, OccurredAt: at}); err != nil {
		t.Fatalf("accumulate: %v", err)
	}

	remote := &busyRemote{}
	remote.duringApply = func() {
		if _, err := stats.Accumulate(ctx, statsdto.AccumulateInput{Domain: "github.com", Seconds: 30, OccurredAt: at.Add(5 * time.Minute)}); err != nil {
			t.Errorf("accumulate during write: %v", err)
		}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flush := service.NewFlushService(NewStatsSource(stats), remote, signedIn{}, nil, clock.SystemClock{}, id.UUID{}, logger)
	defer flush.Close()

	if _, err := flush.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if remote.seconds != 90 || localSeconds(t, stats) != 30 {
		t.Fatalf("expected 90 pushed and 30 pending, got remote=%d local=%d", remote.seconds, localSeconds(t, stats))
	}

	if _, err := flush.Flush(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if remote.seconds != 120 || localSeconds(t, stats) != 0 {
		t.Fatalf("expected all 120 pushed, got remote=%d local=%d", remote.seconds, localSeconds(t, stats))
	}
}
