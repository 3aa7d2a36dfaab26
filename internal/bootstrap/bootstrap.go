package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	agentinadapter "analyzeit/internal/modules/agent/adapter/in"
	agentoutadapter "analyzeit/internal/modules/agent/adapter/out"
	agentservice "analyzeit/internal/modules/agent/service"
	agentusecase "analyzeit/internal/modules/agent/usecase"
	syncoutadapter "analyzeit/internal/modules/cloudsync/adapter/out"
	syncservice "analyzeit/internal/modules/cloudsync/service"
	syncusecase "analyzeit/internal/modules/cloudsync/usecase"
	identityoutadapter "analyzeit/internal/modules/identity/adapter/out"
	identityservice "analyzeit/internal/modules/identity/service"
	identityusecase "analyzeit/internal/modules/identity/usecase"
	prefoutadapter "analyzeit/internal/modules/preference/adapter/out"
	prefdto "analyzeit/internal/modules/preference/dto"
	prefservice "analyzeit/internal/modules/preference/service"
	prefusecase "analyzeit/internal/modules/preference/usecase"
	statsinadapter "analyzeit/internal/modules/stats/adapter/in"
	statsoutadapter "analyzeit/internal/modules/stats/adapter/out"
	statsservice "analyzeit/internal/modules/stats/service"
	statsusecase "analyzeit/internal/modules/stats/usecase"
	trackeroutadapter "analyzeit/internal/modules/tracker/adapter/out"
	trackerservice "analyzeit/internal/modules/tracker/service"
	trackerusecase "analyzeit/internal/modules/tracker/usecase"
	"analyzeit/internal/platform/catalog"
	"analyzeit/internal/platform/clock"
	"analyzeit/internal/platform/config"
	"analyzeit/internal/platform/dynamo"
	"analyzeit/internal/platform/id"
	uidashboard "analyzeit/internal/ui/dashboard"
)

type App struct {
	Daemon   agentinadapter.DaemonHandler
	AgentCLI agentinadapter.CLIHandler
	StatsCLI statsinadapter.CLIHandler
	Catalog  catalog.Table

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	clk := clock.SystemClock{}
	ids := id.UUID{}

	table, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var remote dynamo.API = dynamo.Offline{}
	if dynamo.Enabled(cfg.Remote) {
		client, err := dynamo.NewClient(ctx, cfg.Remote)
		if err != nil {
			return nil, fmt.Errorf("new dynamodb client: %w", err)
		}
		remote = client
	} else {
		logger.Warn("remote_disabled", "reason", "no region or endpoint configured")
	}

	verifier, err := identityoutadapter.NewJWTVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("new token verifier: %w", err)
	}
	identitySvc := identityservice.NewIdentityService(
		identityoutadapter.NewFileUserStore(cfg.IdentityPath),
		verifier,
		identityoutadapter.NewDynamoUserDirectory(remote, cfg.Remote.UsersTable),
		clk,
		logger,
	)
	identityUC := identityusecase.NewInteractor(identitySvc)

	prefSvc := prefservice.NewPreferenceService(
		prefoutadapter.NewDynamoPreferenceStore(remote, cfg.Remote.PreferencesTable),
		prefoutadapter.NewIdentityResolver(identityUC),
		clk,
		logger,
	)
	prefUC := prefusecase.NewInteractor(prefSvc)

	bucketStore, err := statsoutadapter.NewSQLiteBucketStore(cfg.DBPath)
	if err != nil {
		prefSvc.Close()
		return nil, fmt.Errorf("new bucket store: %w", err)
	}
	statsSvc := statsservice.NewStatsService(
		bucketStore,
		statsoutadapter.NewPreferenceOverlay(prefUC),
		table,
		cfg.FallbackCategory,
		cfg.Location,
		logger,
	)
	statsUC := statsusecase.NewInteractor(statsSvc)

	trackerUC := trackerusecase.NewInteractor(trackerservice.NewTrackerService(
		trackeroutadapter.NewStatsAccumulator(statsUC),
		clk,
		cfg.IdleThreshold,
		logger,
	))

	flushSvc := syncservice.NewFlushService(
		syncoutadapter.NewStatsSource(statsUC),
		syncoutadapter.NewDynamoAggregateStore(remote, cfg.Remote.DailyTable),
		syncoutadapter.NewIdentityResolver(identityUC),
		syncoutadapter.NewTrackerTicker(trackerUC),
		clk,
		ids,
		logger,
	)
	syncUC := syncusecase.NewInteractor(flushSvc)

	runtime := agentservice.NewRuntime(agentoutadapter.NewGRPCControlServer(), cfg.SocketPath, cfg.SyncInterval, logger)
	daemon := agentusecase.NewInteractor(runtime, agentusecase.Modules{
		Tracker:     trackerUC,
		Stats:       statsUC,
		Preferences: prefUC,
		Identity:    identityUC,
		Sync:        syncUC,
	}, defaultMappings(table), clk, logger)

	return &App{
		Daemon:   agentinadapter.NewDaemonHandler(daemon),
		AgentCLI: agentinadapter.NewCLIHandler(daemon),
		StatsCLI: statsinadapter.NewCLIHandler(statsUC),
		Catalog:  table,
		closers: []func() error{
			func() error { flushSvc.Close(); return nil },
			func() error { statsSvc.Close(); return nil },
			func() error { prefSvc.Close(); return nil },
			bucketStore.Close,
		},
	}, nil
}

// Close stops the serial queues in dependency order, then closes the store.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Client reaches a running agent over its control socket.
type Client struct {
	AgentCLI agentinadapter.CLIHandler

	conn *agentoutadapter.GRPCControlClient
}

func Dial(cfg config.Config) (*Client, error) {
	conn, err := agentoutadapter.NewGRPCControlClient(cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	return &Client{AgentCLI: agentinadapter.NewCLIHandler(conn), conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func RunDashboard(app *App, date string) error {
	model := uidashboard.NewModel(app.StatsCLI, date)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func defaultMappings(table catalog.Table) []prefdto.Mapping {
	entries := table.Entries()
	mappings := make([]prefdto.Mapping, 0, len(entries))
	for _, entry := range entries {
		mappings = append(mappings, prefdto.Mapping{Domain: entry.Domain, Category: entry.Category})
	}
	return mappings
}
