package out

import (
	"context"

	"analyzeit/internal/modules/preference/domain"
)

// PreferenceStore persists overrides per user.
type PreferenceStore interface {
	List(ctx context.Context, uid string) ([]domain.Preference, error)
	Put(ctx context.Context, uid string, pref domain.Preference) error
	PutBatch(ctx context.Context, uid string, prefs []domain.Preference) error
	Delete(ctx context.Context, uid, domain string) error
}

// IdentityResolver yields the signed-in user id, if any.
type IdentityResolver interface {
	CurrentUID(ctx context.Context) (string, bool, error)
}
