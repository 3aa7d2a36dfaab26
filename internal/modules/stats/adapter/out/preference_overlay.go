package out

import (
	"context"

	prefin "analyzeit/internal/modules/preference/port/in"
	statsout "analyzeit/internal/modules/stats/port/out"
)

type PreferenceOverlay struct {
	preferences prefin.Usecase
}

func NewPreferenceOverlay(preferences prefin.Usecase) statsout.OverlayLookup {
	return &PreferenceOverlay{preferences: preferences}
}

func (a *PreferenceOverlay) Lookup(ctx context.Context, domain string) (string, bool, error) {
	out, err := a.preferences.Lookup(ctx, domain)
	if err != nil {
		return "", false, err
	}
	return out.Category, out.Found, nil
}
