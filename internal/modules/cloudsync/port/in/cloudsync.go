package in

import (
	"context"

	"analyzeit/internal/modules/cloudsync/dto"
)

type Usecase interface {
	Flush(ctx context.Context) (dto.FlushOutput, error)
}
