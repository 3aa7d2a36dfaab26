package out

import (
	"context"
	"errors"

	syncout "analyzeit/internal/modules/cloudsync/port/out"
	identityin "analyzeit/internal/modules/identity/port/in"
	apperrors "analyzeit/internal/platform/errors"
)

type IdentityResolver struct {
	identity identityin.Usecase
}

func NewIdentityResolver(identity identityin.Usecase) syncout.IdentityResolver {
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
