package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"analyzeit/internal/modules/agent/dto"
	agentin "analyzeit/internal/modules/agent/port/in"
	"analyzeit/internal/modules/agent/service"
	apperrors "analyzeit/internal/platform/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingServer struct {
	started chan string
}

func (s *recordingServer) Serve(ctx context.Context, socketPath string, _ agentin.Usecase) error {
	s.started <- socketPath
	<-ctx.Done()
	return ctx.Err()
}

type nopHandler struct{}

func (nopHandler) Event(context.Context, dto.EventInput) (dto.StatusOutput, error) {
	return dto.StatusOutput{}, nil
}
func (nopHandler) UpdateMapping(context.Context, dto.MappingInput) error { return nil }
func (nopHandler) SignIn(context.Context, dto.SignInInput) (dto.UserOutput, error) {
	return dto.UserOutput{}, nil
}
func (nopHandler) SignOut(context.Context) error                    { return nil }
func (nopHandler) Flush(context.Context) (dto.FlushOutput, error)   { return dto.FlushOutput{}, nil }
func (nopHandler) Status(context.Context) (dto.StatusOutput, error) { return dto.StatusOutput{}, nil }

func startRuntime(t *testing.T, runtime *service.Runtime, hooks service.Hooks) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runtime.Run(ctx, nopHandler{}, hooks)
	}()
	return cancel, done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runtime did not stop")
	}
}

func TestRuntimeDispatchRunsCommandsInOrder(t *testing.T) {
	t.Parallel()
	server := &recordingServer{started: make(chan string, 1)}
	runtime := service.NewRuntime(server, "/tmp/agent.sock", 0, discardLogger())
	cancel, done := startRuntime(t, runtime, service.Hooks{})

	if got := <-server.started; got != "/tmp/agent.sock" {
		t.Fatalf("unexpected socket path: %s", got)
	}

	var order []int
	for i := 0; i < 20; i++ {
		if err := runtime.Dispatch(context.Background(), func(context.Context) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("commands ran out of order: %v", order)
		}
	}

	cancel()
	waitStopped(t, done)
}

func TestRuntimeDispatchRecoversPanics(t *testing.T) {
	t.Parallel()
	runtime := service.NewRuntime(nil, "", 0, discardLogger())
	cancel, done := startRuntime(t, runtime, service.Hooks{})

	err := runtime.Dispatch(context.Background(), func(context.Context) error {
		panic("boom")
	})
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	sentinel := errors.New("next")
	if err := runtime.Dispatch(context.Background(), func(context.Context) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("dispatcher did not survive panic: %v", err)
	}

	cancel()
	waitStopped(t, done)
}

func TestRuntimeDispatchAfterStopFails(t *testing.T) {
	t.Parallel()
	runtime := service.NewRuntime(nil, "", 0, discardLogger())
	cancel, done := startRuntime(t, runtime, service.Hooks{})
	cancel()
	waitStopped(t, done)

	err := runtime.Dispatch(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, apperrors.ErrQueueClosed) {
		t.Fatalf("expected queue closed, got %v", err)
	}
}

func TestRuntimePeriodicRunsDoNotOverlap(t *testing.T) {
	t.Parallel()
	var (
		running atomic.Int32
		maxSeen atomic.Int32
		calls   atomic.Int32
	)
	hook := func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			seen := maxSeen.Load()
			if n <= seen || maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		calls.Add(1)
		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}
	runtime := service.NewRuntime(nil, "", 5*time.Millisecond, discardLogger())
	cancel, done := startRuntime(t, runtime, service.Hooks{Periodic: hook})

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	waitStopped(t, done)

	if calls.Load() < 3 {
		t.Fatalf("expected periodic hook to fire repeatedly, got %d", calls.Load())
	}
	if maxSeen.Load() != 1 {
		t.Fatalf("periodic runs overlapped: %d concurrent", maxSeen.Load())
	}
}

func TestRuntimeRunsStartupAndShutdownHooks(t *testing.T) {
	t.Parallel()
	var events []string
	var mu sync.Mutex
	record := func(name string) {
		mu.Lock()
		events = append(events, name)
		mu.Unlock()
	}
	runtime := service.NewRuntime(nil, "", 0, discardLogger())
	cancel, done := startRuntime(t, runtime, service.Hooks{
		Startup: func(context.Context) { record("startup") },
		Shutdown: func(ctx context.Context) {
			if ctx.Err() != nil {
				record("shutdown-canceled")
				return
			}
			record("shutdown")
		},
	})
	if err := runtime.Dispatch(context.Background(), func(context.Context) error {
		record("command")
		return nil
	}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	cancel()
	waitStopped(t, done)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"startup", "command", "shutdown"}
	if len(events) != len(want) {
		t.Fatalf("unexpected hook order: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("unexpected hook order: %v", events)
		}
	}
}
