package in

import (
	"context"

	"analyzeit/internal/modules/agent/dto"
	agentin "analyzeit/internal/modules/agent/port/in"
)

type CLIHandler struct {
	usecase agentin.Usecase
}

func NewCLIHandler(usecase agentin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Event(ctx context.Context, input dto.EventInput) (dto.StatusOutput, error) {
	return h.usecase.Event(ctx, input)
}

func (h CLIHandler) Map(ctx context.Context, domain, category string) error {
	return h.usecase.UpdateMapping(ctx, dto.MappingInput{Domain: domain, Category: category})
}

func (h CLIHandler) Unmap(ctx context.Context, domain string) error {
	return h.usecase.UpdateMapping(ctx, dto.MappingInput{Domain: domain, Clear: true})
}

func (h CLIHandler) SignIn(ctx context.Context, input dto.SignInInput) (dto.UserOutput, error) {
	return h.usecase.SignIn(ctx, input)
}

func (h CLIHandler) SignOut(ctx context.Context) error {
	return h.usecase.SignOut(ctx)
}

func (h CLIHandler) Flush(ctx context.Context) (dto.FlushOutput, error) {
	return h.usecase.Flush(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}

type DaemonHandler struct {
	daemon agentin.Daemon
}

func NewDaemonHandler(daemon agentin.Daemon) DaemonHandler {
	return DaemonHandler{daemon: daemon}
}

func (h DaemonHandler) Run(ctx context.Context) error {
	return h.daemon.Run(ctx)
}
