package in

import (
	"context"

	"analyzeit/internal/modules/identity/dto"
)

type Usecase interface {
	SignIn(ctx context.Context, input dto.SignInInput) (dto.UserOutput, error)
	Current(ctx context.Context) (dto.UserOutput, error)
	SignOut(ctx context.Context) error
}
