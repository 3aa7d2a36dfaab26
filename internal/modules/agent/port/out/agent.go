package out

import (
	"context"

	agentin "analyzeit/internal/modules/agent/port/in"
)

// ControlServer exposes a handler on a local socket until ctx ends.
type ControlServer interface {
	Serve(ctx context.Context, socketPath string, handler agentin.Usecase) error
}
