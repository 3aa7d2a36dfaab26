package out

import (
	"context"

	syncout "analyzeit/internal/modules/cloudsync/port/out"
	trackerin "analyzeit/internal/modules/tracker/port/in"
)

type TrackerTicker struct {
	tracker trackerin.Usecase
}

func NewTrackerTicker(tracker trackerin.Usecase) syncout.SessionTicker {
	return &TrackerTicker{tracker: tracker}
}

func (a *TrackerTicker) Tick(ctx context.Context) error {
	_, err := a.tracker.Tick(ctx)
	return err
}
