package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"analyzeit/internal/modules/tracker/domain"
	trackerout "analyzeit/internal/modules/tracker/port/out"
	"analyzeit/internal/platform/clock"
	apperrors "analyzeit/internal/platform/errors"
)

type Attribution struct {
	Domain  string
	Seconds int64
}

// TrackerService owns the session state. Every tick credits the time since
// the previous tick to the domain that was active before it.
type TrackerService struct {
	mu          sync.Mutex
	state       domain.State
	snapshot    domain.Snapshot
	accumulator trackerout.Accumulator
	clock       clock.Clock
	threshold   time.Duration
	logger      *slog.Logger
}

func NewTrackerService(accumulator trackerout.Accumulator, clk clock.Clock, idleThreshold time.Duration, logger *slog.Logger) *TrackerService {
	return &TrackerService{
		state:       domain.State{SessionStart: clk.Now()},
		snapshot:    domain.NewSnapshot(),
		accumulator: accumulator,
		clock:       clk,
		threshold:   idleThreshold,
		logger:      logger,
	}
}

func (s *TrackerService) Observe(ctx context.Context, event domain.Event) (domain.State, domain.Snapshot, Attribution, error) {
	if !domain.ValidEventKind(event.Kind) {
		return domain.State{}, domain.Snapshot{}, Attribution{}, fmt.Errorf("%w: unknown event kind %q", apperrors.ErrInvalidInput, event.Kind)
	}
	if event.Idle != nil && !domain.ValidIdleState(*event.Idle) {
		return domain.State{}, domain.Snapshot{}, Attribution{}, fmt.Errorf("%w: unknown idle state %q", apperrors.ErrInvalidInput, *event.Idle)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Time up to now belongs to the state before this event.
	attributed := s.creditLocked(ctx)
	s.snapshot = s.snapshot.Apply(event)
	s.reevaluateLocked()
	return s.state, s.snapshot, attributed, nil
}

func (s *TrackerService) Tick(ctx context.Context) (domain.State, Attribution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attributed := s.creditLocked(ctx)
	s.reevaluateLocked()
	return s.state, attributed
}

func (s *TrackerService) Active() (domain.State, domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.snapshot
}

func (s *TrackerService) creditLocked(ctx context.Context) Attribution {
	now := s.clock.Now()
	seconds := int64(now.Sub(s.state.SessionStart) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	s.state.SessionStart = now
	previous := s.state.ActiveDomain
	if seconds < 1 || previous == "" {
		return Attribution{}
	}
	occurredAt := now.Add(-time.Duration(seconds) * time.Second)
	if err := s.accumulator.Accumulate(ctx, previous, seconds, occurredAt); err != nil {
		s.logger.Warn("accumulate_failed", "domain", previous, "seconds", seconds, "error", err)
		return Attribution{}
	}
	return Attribution{Domain: previous, Seconds: seconds}
}

func (s *TrackerService) reevaluateLocked() {
	domainName, title := s.snapshot.Evaluate(s.clock.Now(), s.threshold)
	if domainName != s.state.ActiveDomain {
		s.logger.Debug("active_domain_changed", "from", s.state.ActiveDomain, "to", domainName)
	}
	s.state.ActiveDomain = domainName
	s.state.ActiveTitle = title
}
