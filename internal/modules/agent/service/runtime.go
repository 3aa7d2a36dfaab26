package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	agentin "analyzeit/internal/modules/agent/port/in"
	agentout "analyzeit/internal/modules/agent/port/out"
	apperrors "analyzeit/internal/platform/errors"
)

const commandBuffer = 64

// Hooks are the agent behaviors the runtime triggers.
type Hooks struct {
	Startup  func(ctx context.Context)
	Periodic func(ctx context.Context) error
	Shutdown func(ctx context.Context)
}

type command struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

// Runtime owns the dispatcher goroutine, the periodic trigger and the
// control server of a running agent.
type Runtime struct {
	commands   chan command
	stopped    chan struct{}
	flights    singleflight.Group
	server     agentout.ControlServer
	socketPath string
	interval   time.Duration
	logger     *slog.Logger
}

func NewRuntime(server agentout.ControlServer, socketPath string, interval time.Duration, logger *slog.Logger) *Runtime {
	return &Runtime{
		commands:   make(chan command, commandBuffer),
		stopped:    make(chan struct{}),
		server:     server,
		socketPath: socketPath,
		interval:   interval,
		logger:     logger,
	}
}

// Dispatch runs fn on the dispatcher goroutine, after every command queued
// before it, and waits for the result.
func (r *Runtime) Dispatch(ctx context.Context, fn func(context.Context) error) error {
	cmd := command{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case r.commands <- cmd:
	case <-r.stopped:
		return apperrors.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.result:
		return err
	case <-r.stopped:
		select {
		case err := <-cmd.result:
			return err
		default:
			return apperrors.ErrQueueClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) Run(ctx context.Context, handler agentin.Usecase, hooks Hooks) error {
	if hooks.Startup != nil {
		hooks.Startup(ctx)
	}
	r.logger.Info("agent_started", "socket", r.socketPath, "sync_interval", r.interval.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.dispatch(gctx)
		return nil
	})
	g.Go(func() error {
		r.periodic(gctx, g, hooks.Periodic)
		return nil
	})
	if r.server != nil {
		g.Go(func() error {
			err := r.server.Serve(gctx, r.socketPath, handler)
			if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("control server: %w", err)
			}
			return nil
		})
	}
	err := g.Wait()

	if hooks.Shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		hooks.Shutdown(shutdownCtx)
		cancel()
	}
	r.logger.Info("agent_stopped")
	return err
}

func (r *Runtime) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(r.stopped)
			r.drain()
			return
		case cmd := <-r.commands:
			cmd.result <- r.exec(cmd)
		}
	}
}

// drain fails the commands still queued at shutdown.
func (r *Runtime) drain() {
	for {
		select {
		case cmd := <-r.commands:
			cmd.result <- apperrors.ErrQueueClosed
		default:
			return
		}
	}
}

func (r *Runtime) exec(cmd command) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("agent command panic: %v", rec)
		}
	}()
	if err := cmd.ctx.Err(); err != nil {
		return err
	}
	return cmd.fn(cmd.ctx)
}

// periodic fires the hook every interval. Overlapping firings share the
// in-flight run instead of stacking.
func (r *Runtime) periodic(ctx context.Context, g *errgroup.Group, hook func(context.Context) error) {
	if hook == nil || r.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Go(func() error {
				_, err, shared := r.flights.Do("periodic", func() (any, error) {
					return nil, hook(ctx)
				})
				if err != nil && !shared && !errors.Is(err, context.Canceled) {
					r.logger.Warn("periodic_run_failed", "error", err)
				}
				return nil
			})
		}
	}
}
