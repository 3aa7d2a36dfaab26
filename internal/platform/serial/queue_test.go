package serial_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "analyzeit/internal/platform/errors"
	"analyzeit/internal/platform/serial"
)

func TestQueueRunsJobsInSubmissionOrder(t *testing.T) {
	t.Parallel()
	q := serial.New()
	defer q.Close()

	var mu sync.Mutex
	var order []int
	results := make([]<-chan error, 0, 20)
	for i := 0; i < 20; i++ {
		i := i
		results = append(results, q.Submit(context.Background(), func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	for _, r := range results {
		if err := <-r; err != nil {
			t.Fatalf("job failed: %v", err)
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("job %d ran at position %d: %v", v, i, order)
		}
	}
}

func TestQueueNeverOverlapsJobs(t *testing.T) {
	t.Parallel()
	q := serial.New()
	defer q.Close()

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxInFlight != 1 {
		t.Fatalf("expected one job in flight at a time, saw %d", maxInFlight)
	}
}

func TestQueueDropsJobAbandonedBeforeStart(t *testing.T) {
	t.Parallel()
	q := serial.New()
	defer q.Close()

	release := make(chan struct{})
	blocker := q.Submit(context.Background(), func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	done := make(chan error, 1)
	go func() {
		done <- q.Do(ctx, func(context.Context) error {
			ran = true
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	close(release)
	if err := <-blocker; err != nil {
		t.Fatalf("blocker: %v", err)
	}
	if err := q.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if ran {
		t.Fatalf("abandoned job must not run")
	}
}

func TestQueueRecoversPanicsAndRejectsAfterClose(t *testing.T) {
	t.Parallel()
	q := serial.New()

	err := q.Do(context.Background(), func(context.Context) error { panic("boom") })
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if err := q.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("worker should survive a panic: %v", err)
	}

	q.Close()
	if err := q.Do(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, apperrors.ErrQueueClosed) {
		t.Fatalf("expected closed queue error, got %v", err)
	}
}
