package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"analyzeit/internal/modules/agent/domain"
	"analyzeit/internal/modules/agent/dto"
	agentin "analyzeit/internal/modules/agent/port/in"
	"analyzeit/internal/modules/agent/service"
	syncin "analyzeit/internal/modules/cloudsync/port/in"
	identitydto "analyzeit/internal/modules/identity/dto"
	identityin "analyzeit/internal/modules/identity/port/in"
	prefdto "analyzeit/internal/modules/preference/dto"
	prefin "analyzeit/internal/modules/preference/port/in"
	statsin "analyzeit/internal/modules/stats/port/in"
	trackerdto "analyzeit/internal/modules/tracker/dto"
	trackerin "analyzeit/internal/modules/tracker/port/in"
	"analyzeit/internal/platform/clock"
	apperrors "analyzeit/internal/platform/errors"
)

// Modules are the usecases the agent orchestrates.
type Modules struct {
	Tracker     trackerin.Usecase
	Stats       statsin.Usecase
	Preferences prefin.Usecase
	Identity    identityin.Usecase
	Sync        syncin.Usecase
}

type Interactor struct {
	runtime  *service.Runtime
	modules  Modules
	defaults []prefdto.Mapping
	clock    clock.Clock
	logger   *slog.Logger

	mu        sync.Mutex
	lastFlush domain.FlushRecord
}

func NewInteractor(runtime *service.Runtime, modules Modules, defaults []prefdto.Mapping, clk clock.Clock, logger *slog.Logger) agentin.Daemon {
	return &Interactor{runtime: runtime, modules: modules, defaults: defaults, clock: clk, logger: logger}
}

func (i *Interactor) Run(ctx context.Context) error {
	return i.runtime.Run(ctx, i, service.Hooks{
		Startup: func(ctx context.Context) {
			if err := i.modules.Preferences.Reload(ctx); err != nil {
				i.logger.Warn("preferences_reload_failed", "error", err)
			}
		},
		Periodic: func(ctx context.Context) error {
			_, err := i.flush(ctx)
			return err
		},
		Shutdown: func(ctx context.Context) {
			if _, err := i.modules.Tracker.Tick(ctx); err != nil {
				i.logger.Warn("final_tick_failed", "error", err)
			}
			i.modules.Preferences.Wait()
		},
	})
}

func (i *Interactor) Event(ctx context.Context, input dto.EventInput) (dto.StatusOutput, error) {
	var state trackerdto.StateOutput
	err := i.runtime.Dispatch(ctx, func(ctx context.Context) error {
		var err error
		state, err = i.modules.Tracker.Observe(ctx, trackerdto.EventInput{
			Kind:          input.Kind,
			WindowExists:  input.WindowExists,
			WindowFocused: input.WindowFocused,
			URL:           input.URL,
			Title:         input.Title,
			Audible:       input.Audible,
			Idle:          input.Idle,
			LastInputAt:   input.LastInputAt,
		})
		return err
	})
	if err != nil {
		return dto.StatusOutput{}, err
	}
	return dto.StatusOutput{
		ActiveDomain: state.ActiveDomain,
		ActiveTitle:  state.ActiveTitle,
		SessionStart: state.SessionStart,
		Idle:         state.Idle,
		Audible:      state.Audible,
	}, nil
}

func (i *Interactor) UpdateMapping(ctx context.Context, input dto.MappingInput) error {
	category := strings.TrimSpace(input.Category)
	if input.Clear {
		category = ""
	} else if category == "" {
		return fmt.Errorf("%w: category is required unless clearing", apperrors.ErrInvalidInput)
	}
	return i.runtime.Dispatch(ctx, func(ctx context.Context) error {
		return i.modules.Preferences.Set(ctx, prefdto.SetInput{Domain: input.Domain, Category: category})
	})
}

// SignIn stores the identity, then seeds and reloads preferences. Seed and
// reload failures are logged; the user stays signed in.
func (i *Interactor) SignIn(ctx context.Context, input dto.SignInInput) (dto.UserOutput, error) {
	user, err := i.modules.Identity.SignIn(ctx, identitydto.SignInInput{
		Token: input.Token,
		UID:   input.UID,
		Email: input.Email,
		Name:  input.Name,
		Photo: input.Photo,
	})
	if err != nil {
		return dto.UserOutput{}, err
	}
	if len(i.defaults) > 0 {
		if err := i.modules.Preferences.Seed(ctx, i.defaults); err != nil {
			i.logger.Warn("preferences_seed_failed", "uid", user.UID, "error", err)
		}
	}
	if err := i.modules.Preferences.Reload(ctx); err != nil {
		i.logger.Warn("preferences_reload_failed", "uid", user.UID, "error", err)
	}
	return dto.UserOutput{UID: user.UID, Email: user.Email, Name: user.Name}, nil
}

// SignOut pushes what it can, then clears local state whether or not the
// push worked.
func (i *Interactor) SignOut(ctx context.Context) error {
	if _, err := i.modules.Tracker.Tick(ctx); err != nil {
		i.logger.Warn("sign_out_tick_failed", "error", err)
	}
	if _, err := i.flush(ctx); err != nil {
		i.logger.Warn("sign_out_flush_failed", "error", err)
	}
	i.modules.Preferences.Wait()

	var errs []error
	if err := i.modules.Stats.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear buckets: %w", err))
	}
	if err := i.modules.Identity.SignOut(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear identity: %w", err))
	}
	if err := i.modules.Preferences.Reset(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reset preferences: %w", err))
	}
	i.logger.Info("dashboard_reset_requested")
	return errors.Join(errs...)
}

func (i *Interactor) Flush(ctx context.Context) (dto.FlushOutput, error) {
	return i.flush(ctx)
}

func (i *Interactor) flush(ctx context.Context) (dto.FlushOutput, error) {
	result, err := i.modules.Sync.Flush(ctx)
	out := dto.FlushOutput{
		RunID:      result.RunID,
		NoIdentity: result.NoIdentity,
		Buckets:    result.Buckets,
		Flushed:    result.Flushed,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
		Seconds:    result.Seconds,
	}
	record := domain.FlushRecord{
		At:      i.clock.Now(),
		RunID:   out.RunID,
		Buckets: out.Buckets,
		Flushed: out.Flushed,
		Skipped: out.Skipped,
		Failed:  out.Failed,
		Seconds: out.Seconds,
	}
	if err != nil {
		record.Err = err.Error()
	}
	i.mu.Lock()
	i.lastFlush = record
	i.mu.Unlock()
	return out, err
}

func (i *Interactor) Status(ctx context.Context) (dto.StatusOutput, error) {
	state, err := i.modules.Tracker.Active(ctx)
	if err != nil {
		return dto.StatusOutput{}, err
	}
	out := dto.StatusOutput{
		ActiveDomain: state.ActiveDomain,
		ActiveTitle:  state.ActiveTitle,
		SessionStart: state.SessionStart,
		Idle:         state.Idle,
		Audible:      state.Audible,
	}
	user, err := i.modules.Identity.Current(ctx)
	switch {
	case err == nil:
		out.SignedIn = true
		out.UID = user.UID
		out.Email = user.Email
	case !errors.Is(err, apperrors.ErrNoIdentity):
		return dto.StatusOutput{}, err
	}
	pending, err := i.modules.Stats.PendingBuckets(ctx)
	if err != nil {
		return dto.StatusOutput{}, err
	}
	out.PendingBuckets = len(pending)
	for _, bucket := range pending {
		for _, cat := range bucket.Categories {
			out.PendingSeconds += cat.TotalSeconds
		}
	}
	overrides, err := i.modules.Preferences.List(ctx)
	if err != nil {
		return dto.StatusOutput{}, err
	}
	out.Overrides = len(overrides)

	i.mu.Lock()
	last := i.lastFlush
	i.mu.Unlock()
	out.LastFlushAt = last.At
	out.LastFlush = dto.FlushOutput{
		RunID:   last.RunID,
		Buckets: last.Buckets,
		Flushed: last.Flushed,
		Skipped: last.Skipped,
		Failed:  last.Failed,
		Seconds: last.Seconds,
	}
	return out, nil
}
