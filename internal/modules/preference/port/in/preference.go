package in

import (
	"context"

	"analyzeit/internal/modules/preference/dto"
)

type Usecase interface {
	Lookup(ctx context.Context, domain string) (dto.LookupOutput, error)
	Set(ctx context.Context, input dto.SetInput) error
	List(ctx context.Context) ([]dto.Mapping, error)
	Reload(ctx context.Context) error
	Seed(ctx context.Context, mappings []dto.Mapping) error
	Reset(ctx context.Context) error
	Wait()
}
