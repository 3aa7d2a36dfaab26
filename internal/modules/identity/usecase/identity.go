package usecase

import (
	"context"

	"analyzeit/internal/modules/identity/domain"
	"analyzeit/internal/modules/identity/dto"
	identityin "analyzeit/internal/modules/identity/port/in"
	"analyzeit/internal/modules/identity/service"
)

type Interactor struct {
	svc *service.IdentityService
}

func NewInteractor(svc *service.IdentityService) identityin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) SignIn(ctx context.Context, input dto.SignInInput) (dto.UserOutput, error) {
	user, err := i.svc.SignIn(ctx, input.Token, domain.User{UID: input.UID, Email: input.Email, Name: input.Name, Photo: input.Photo})
	if err != nil {
		return dto.UserOutput{}, err
	}
	return toOutput(user), nil
}

func (i *Interactor) Current(ctx context.Context) (dto.UserOutput, error) {
	user, err := i.svc.Current(ctx)
	if err != nil {
		return dto.UserOutput{}, err
	}
	return toOutput(user), nil
}

func (i *Interactor) SignOut(ctx context.Context) error {
	return i.svc.SignOut(ctx)
}

func toOutput(user domain.User) dto.UserOutput {
	return dto.UserOutput{UID: user.UID, Email: user.Email, Name: user.Name, Photo: user.Photo}
}
