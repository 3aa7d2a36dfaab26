package out

import (
	"context"
	"time"

	"analyzeit/internal/modules/identity/domain"
)

type UserStore interface {
	Save(ctx context.Context, user domain.User) error
	Load(ctx context.Context) (domain.User, error)
	Clear(ctx context.Context) error
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.User, error)
}

// Directory mirrors the user record remotely.
type Directory interface {
	Touch(ctx context.Context, user domain.User, at time.Time) error
}
