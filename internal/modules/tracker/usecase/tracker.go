package usecase

import (
	"context"

	"analyzeit/internal/modules/tracker/domain"
	"analyzeit/internal/modules/tracker/dto"
	trackerin "analyzeit/internal/modules/tracker/port/in"
	"analyzeit/internal/modules/tracker/service"
)

type Interactor struct {
	svc *service.TrackerService
}

func NewInteractor(svc *service.TrackerService) trackerin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Observe(ctx context.Context, input dto.EventInput) (dto.StateOutput, error) {
	state, snapshot, attributed, err := i.svc.Observe(ctx, domain.Event{
		Kind:          input.Kind,
		WindowExists:  input.WindowExists,
		WindowFocused: input.WindowFocused,
		TabURL:        input.URL,
		TabTitle:      input.Title,
		Audible:       input.Audible,
		Idle:          input.Idle,
		LastInputAt:   input.LastInputAt,
	})
	if err != nil {
		return dto.StateOutput{}, err
	}
	return toOutput(state, snapshot, attributed), nil
}

func (i *Interactor) Tick(ctx context.Context) (dto.StateOutput, error) {
	state, attributed := i.svc.Tick(ctx)
	_, snapshot := i.svc.Active()
	return toOutput(state, snapshot, attributed), nil
}

func (i *Interactor) Active(context.Context) (dto.StateOutput, error) {
	state, snapshot := i.svc.Active()
	return toOutput(state, snapshot, service.Attribution{}), nil
}

func toOutput(state domain.State, snapshot domain.Snapshot, attributed service.Attribution) dto.StateOutput {
	return dto.StateOutput{
		SessionStart:  state.SessionStart,
		ActiveDomain:  state.ActiveDomain,
		ActiveTitle:   state.ActiveTitle,
		WindowFocused: snapshot.WindowFocused,
		Audible:       snapshot.Audible,
		Idle:          snapshot.Idle,
		Attributed:    dto.Attribution{Domain: attributed.Domain, Seconds: attributed.Seconds},
	}
}
