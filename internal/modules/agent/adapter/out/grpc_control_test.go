package out_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	out "analyzeit/internal/modules/agent/adapter/out"
	"analyzeit/internal/modules/agent/dto"
	apperrors "analyzeit/internal/platform/errors"
)

type fakeAgent struct {
	mu       sync.Mutex
	events   []dto.EventInput
	mappings []dto.MappingInput
	signedIn bool
}

func (a *fakeAgent) Event(_ context.Context, input dto.EventInput) (dto.StatusOutput, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, input)
	if input.URL == nil {
		return dto.StatusOutput{}, nil
	}
	return dto.StatusOutput{ActiveDomain: "github.com", Idle: "active"}, nil
}

func (a *fakeAgent) UpdateMapping(_ context.Context, input dto.MappingInput) error {
	if input.Domain == "" {
		return fmt.Errorf("%w: domain is required", apperrors.ErrInvalidInput)
	}
	a.mu.Lock()
	a.mappings = append(a.mappings, input)
	a.mu.Unlock()
	return nil
}

func (a *fakeAgent) SignIn(_ context.Context, input dto.SignInInput) (dto.UserOutput, error) {
	if input.Token == "bad" {
		return dto.UserOutput{}, fmt.Errorf("verify: %w", apperrors.ErrInvalidToken)
	}
	a.mu.Lock()
	a.signedIn = true
	a.mu.Unlock()
	return dto.UserOutput{UID: input.UID, Email: input.Email}, nil
}

func (a *fakeAgent) SignOut(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.signedIn {
		return apperrors.ErrNoIdentity
	}
	a.signedIn = false
	return nil
}

func (a *fakeAgent) Flush(context.Context) (dto.FlushOutput, error) {
	return dto.FlushOutput{RunID: "run-1", Buckets: 2, Flushed: 2, Seconds: 240}, nil
}

func (a *fakeAgent) Status(context.Context) (dto.StatusOutput, error) {
	return dto.StatusOutput{
		SignedIn:       true,
		UID:            "u1",
		PendingBuckets: 3,
		PendingSeconds: 360,
		LastFlushAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		LastFlush:      dto.FlushOutput{RunID: "run-0", Flushed: 1},
	}, nil
}

func startAgent(t *testing.T, handler *fakeAgent) *out.GRPCControlClient {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "agent.sock")
	ctx, cancel := context.WithCancel(context.Background())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- out.NewGRPCControlServer().Serve(ctx, socketPath, handler)
	}()

	client, err := out.NewGRPCControlClient(socketPath)
	if err != nil {
		cancel()
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		select {
		case err := <-serveErr:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := client.Status(context.Background()); err == nil {
			return client
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("agent socket never became ready")
	return nil
}

func TestGRPCControlRoundTrip(t *testing.T) {
	t.Parallel()
	handler := &fakeAgent{}
	client := startAgent(t, handler)
	ctx := context.Background()

	url := "https://github.com/pulls"
	focused := true
	state, err := client.Event(ctx, dto.EventInput{Kind: "tab_activated", URL: &url, WindowFocused: &focused})
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if state.ActiveDomain != "github.com" || state.Idle != "active" {
		t.Fatalf("unexpected event state: %+v", state)
	}
	handler.mu.Lock()
	got := handler.events[0]
	handler.mu.Unlock()
	if got.URL == nil || *got.URL != url || got.WindowFocused == nil || !*got.WindowFocused || got.Title != nil {
		t.Fatalf("event fields lost in transit: %+v", got)
	}

	if err := client.UpdateMapping(ctx, dto.MappingInput{Domain: "news.ycombinator.com", Category: "Social Media"}); err != nil {
		t.Fatalf("update mapping: %v", err)
	}

	user, err := client.SignIn(ctx, dto.SignInInput{UID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.UID != "u1" || user.Email != "a@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	flush, err := client.Flush(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flush.RunID != "run-1" || flush.Flushed != 2 || flush.Seconds != 240 {
		t.Fatalf("unexpected flush: %+v", flush)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.SignedIn || status.PendingBuckets != 3 || status.LastFlush.RunID != "run-0" || !status.LastFlushAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := client.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
}

func TestGRPCControlMapsSentinelErrors(t *testing.T) {
	t.Parallel()
	client := startAgent(t, &fakeAgent{})
	ctx := context.Background()

	if err := client.UpdateMapping(ctx, dto.MappingInput{Category: "Work"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := client.SignIn(ctx, dto.SignInInput{Token: "bad"}); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if err := client.SignOut(ctx); !errors.Is(err, apperrors.ErrNoIdentity) {
		t.Fatalf("expected no identity, got %v", err)
	}
}
