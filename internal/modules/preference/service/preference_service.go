package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"analyzeit/internal/modules/preference/domain"
	prefout "analyzeit/internal/modules/preference/port/out"
	"analyzeit/internal/platform/clock"
	apperrors "analyzeit/internal/platform/errors"
	"analyzeit/internal/platform/serial"
)

// PreferenceService keeps the overlay in memory and mirrors changes to the
// remote store in submission order.
type PreferenceService struct {
	overlay  *domain.Overlay
	store    prefout.PreferenceStore
	identity prefout.IdentityResolver
	clock    clock.Clock
	logger   *slog.Logger
	queue    *serial.Queue

	// unsent holds overrides set in memory whose remote write has not run
	// yet. Reload puts them back over the remote list.
	mu     sync.Mutex
	seq    uint64
	unsent map[string]unsentOverride
}

type unsentOverride struct {
	category string
	seq      uint64
}

func NewPreferenceService(store prefout.PreferenceStore, identity prefout.IdentityResolver, clk clock.Clock, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{
		overlay:  domain.NewOverlay(),
		store:    store,
		identity: identity,
		clock:    clk,
		logger:   logger,
		queue:    serial.New(),
		unsent:   map[string]unsentOverride{},
	}
}

func (s *PreferenceService) Lookup(domainName string) (string, bool) {
	return s.overlay.Get(domainName)
}

func (s *PreferenceService) Snapshot() map[string]string {
	return s.overlay.Snapshot()
}

// Set updates memory before returning. The remote write runs later on the
// queue; its failure is logged and memory is left as is.
func (s *PreferenceService) Set(ctx context.Context, domainName, category string) error {
	domainName = domain.NormalizeDomain(domainName)
	category = strings.TrimSpace(category)
	if domainName == "" {
		return fmt.Errorf("%w: domain is required", apperrors.ErrInvalidInput)
	}
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.unsent[domainName] = unsentOverride{category: category, seq: seq}
	s.overlay.Set(domainName, category)
	s.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	s.queue.Submit(detached, func(ctx context.Context) error {
		err := s.persist(ctx, domainName, category)
		s.mu.Lock()
		if s.unsent[domainName].seq == seq {
			delete(s.unsent, domainName)
		}
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("preference_persist_failed", "domain", domainName, "error", err)
		}
		return err
	})
	return nil
}

func (s *PreferenceService) persist(ctx context.Context, domainName, category string) error {
	uid, ok, err := s.identity.CurrentUID(ctx)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	if !ok {
		return nil
	}
	if category == "" {
		return s.store.Delete(ctx, uid, domainName)
	}
	return s.store.Put(ctx, uid, domain.Preference{Domain: domainName, Category: category, UpdatedAt: s.clock.Now().UTC()})
}

// Reload replaces the overlay with the user's remote overrides. It runs on
// the write queue, so writes submitted earlier are already in the list it
// reads; overrides set while it runs are kept.
func (s *PreferenceService) Reload(ctx context.Context) error {
	return s.queue.Do(ctx, func(ctx context.Context) error {
		uid, ok, err := s.identity.CurrentUID(ctx)
		if err != nil {
			return fmt.Errorf("resolve identity: %w", err)
		}
		if !ok {
			return nil
		}
		prefs, err := s.store.List(ctx, uid)
		if err != nil {
			return fmt.Errorf("list preferences: %w", err)
		}
		s.mu.Lock()
		s.overlay.Replace(prefs)
		for domainName, override := range s.unsent {
			s.overlay.Set(domainName, override.category)
		}
		s.mu.Unlock()
		s.logger.Info("preferences_loaded", "count", len(prefs))
		return nil
	})
}

// Seed writes the given defaults for domains the user has no record for.
func (s *PreferenceService) Seed(ctx context.Context, entries []domain.Preference) error {
	uid, ok, err := s.identity.CurrentUID(ctx)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	if !ok {
		return apperrors.ErrNoIdentity
	}
	return s.queue.Do(ctx, func(ctx context.Context) error {
		existing, err := s.store.List(ctx, uid)
		if err != nil {
			return fmt.Errorf("list preferences: %w", err)
		}
		known := make(map[string]struct{}, len(existing))
		for _, pref := range existing {
			known[domain.NormalizeDomain(pref.Domain)] = struct{}{}
		}
		now := s.clock.Now().UTC()
		missing := make([]domain.Preference, 0, len(entries))
		for _, entry := range entries {
			name := domain.NormalizeDomain(entry.Domain)
			if name == "" || entry.Category == "" {
				continue
			}
			if _, ok := known[name]; ok {
				continue
			}
			known[name] = struct{}{}
			missing = append(missing, domain.Preference{Domain: name, Category: entry.Category, UpdatedAt: now})
		}
		if len(missing) == 0 {
			return nil
		}
		if err := s.store.PutBatch(ctx, uid, missing); err != nil {
			return fmt.Errorf("seed preferences: %w", err)
		}
		s.logger.Info("preferences_seeded", "count", len(missing))
		return nil
	})
}

func (s *PreferenceService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.unsent)
	s.overlay.Reset()
}

// Wait blocks until every queued remote write has run.
func (s *PreferenceService) Wait() {
	_ = s.queue.Do(context.Background(), func(context.Context) error { return nil })
}

func (s *PreferenceService) Close() {
	s.queue.Close()
}
