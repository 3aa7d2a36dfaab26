package in

import (
	"context"

	"analyzeit/internal/modules/agent/dto"
)

// Usecase is the control surface of the running agent. The daemon serves it
// and the CLI reaches it over the control socket.
type Usecase interface {
	Event(ctx context.Context, input dto.EventInput) (dto.StatusOutput, error)
	UpdateMapping(ctx context.Context, input dto.MappingInput) error
	SignIn(ctx context.Context, input dto.SignInInput) (dto.UserOutput, error)
	SignOut(ctx context.Context) error
	Flush(ctx context.Context) (dto.FlushOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
}

// Daemon is the in-process agent: the control surface plus its run loop.
type Daemon interface {
	Usecase
	Run(ctx context.Context) error
}
