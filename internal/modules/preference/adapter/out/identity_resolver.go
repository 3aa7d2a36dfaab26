package out

import (
	"context"
	"errors"

	identityin "analyzeit/internal/modules/identity/port/in"
	prefout "analyzeit/internal/modules/preference/port/out"
	apperrors "analyzeit/internal/platform/errors"
)

type IdentityResolver struct {
	identity identityin.Usecase
}

func NewIdentityResolver(identity identityin.Usecase) prefout.IdentityResolver {
	return &IdentityResolver{identity: identity}
}

func (r *IdentityResolver) CurrentUID(ctx context.Context) (string, bool, error) {
	user, err := r.identity.Current(ctx)
	if errors.Is(err, apperrors.ErrNoIdentity) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.UID, true, nil
}
