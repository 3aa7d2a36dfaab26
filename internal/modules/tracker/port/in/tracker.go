package in

import (
	"context"

	"analyzeit/internal/modules/tracker/dto"
)

type Usecase interface {
	Observe(ctx context.Context, input dto.EventInput) (dto.StateOutput, error)
	Tick(ctx context.Context) (dto.StateOutput, error)
	Active(ctx context.Context) (dto.StateOutput, error)
}
