package usecase

import (
	"context"
	"sort"

	"analyzeit/internal/modules/preference/domain"
	"analyzeit/internal/modules/preference/dto"
	prefin "analyzeit/internal/modules/preference/port/in"
	"analyzeit/internal/modules/preference/service"
)

type Interactor struct {
	svc *service.PreferenceService
}

func NewInteractor(svc *service.PreferenceService) prefin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Lookup(_ context.Context, domainName string) (dto.LookupOutput, error) {
	category, ok := i.svc.Lookup(domainName)
	return dto.LookupOutput{Category: category, Found: ok}, nil
}

func (i *Interactor) Set(ctx context.Context, input dto.SetInput) error {
	return i.svc.Set(ctx, input.Domain, input.Category)
}

func (i *Interactor) List(context.Context) ([]dto.Mapping, error) {
	snapshot := i.svc.Snapshot()
	out := make([]dto.Mapping, 0, len(snapshot))
	for domainName, category := range snapshot {
		out = append(out, dto.Mapping{Domain: domainName, Category: category})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Domain < out[b].Domain })
	return out, nil
}

func (i *Interactor) Reload(ctx context.Context) error {
	return i.svc.Reload(ctx)
}

func (i *Interactor) Seed(ctx context.Context, mappings []dto.Mapping) error {
	prefs := make([]domain.Preference, 0, len(mappings))
	for _, mapping := range mappings {
		prefs = append(prefs, domain.Preference{Domain: mapping.Domain, Category: mapping.Category})
	}
	return i.svc.Seed(ctx, prefs)
}

func (i *Interactor) Reset(context.Context) error {
	i.svc.Reset()
	return nil
}

func (i *Interactor) Wait() {
	i.svc.Wait()
}
