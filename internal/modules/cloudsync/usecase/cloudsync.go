package usecase

import (
	"context"

	"analyzeit/internal/modules/cloudsync/dto"
	syncin "analyzeit/internal/modules/cloudsync/port/in"
	"analyzeit/internal/modules/cloudsync/service"
)

type Interactor struct {
	svc *service.FlushService
}

func NewInteractor(svc *service.FlushService) syncin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Flush(ctx context.Context) (dto.FlushOutput, error) {
	result, err := i.svc.Flush(ctx)
	return dto.FlushOutput{
		RunID:      result.RunID,
		NoIdentity: result.NoIdentity,
		Buckets:    result.Buckets,
		Flushed:    result.Flushed,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
		Seconds:    result.Seconds,
	}, err
}
