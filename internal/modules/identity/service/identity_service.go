package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"analyzeit/internal/modules/identity/domain"
	identityout "analyzeit/internal/modules/identity/port/out"
	"analyzeit/internal/platform/clock"
)

type IdentityService struct {
	store     identityout.UserStore
	verifier  identityout.TokenVerifier
	directory identityout.Directory
	clock     clock.Clock
	logger    *slog.Logger
}

func NewIdentityService(store identityout.UserStore, verifier identityout.TokenVerifier, directory identityout.Directory, clk clock.Clock, logger *slog.Logger) *IdentityService {
	return &IdentityService{store: store, verifier: verifier, directory: directory, clock: clk, logger: logger}
}

// SignIn stores the user locally first; the remote directory touch is best effort.
func (s *IdentityService) SignIn(ctx context.Context, token string, explicit domain.User) (domain.User, error) {
	user := explicit.Normalize()
	if token = strings.TrimSpace(token); token != "" {
		verified, err := s.verifier.Verify(ctx, token)
		if err != nil {
			return domain.User{}, err
		}
		user = verified.Normalize()
	}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}
	if err := s.store.Save(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	if s.directory != nil {
		if err := s.directory.Touch(ctx, user, s.clock.Now().UTC()); err != nil {
			s.logger.Warn("user_touch_failed", "uid", user.UID, "error", err)
		}
	}
	s.logger.Info("signed_in", "uid", user.UID)
	return user, nil
}

func (s *IdentityService) Current(ctx context.Context) (domain.User, error) {
	return s.store.Load(ctx)
}

func (s *IdentityService) SignOut(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	s.logger.Info("signed_out")
	return nil
}
