package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/vendsync/internal/catalog"
	"github.com/mamadbah2/vendsync/internal/config"
	"github.com/mamadbah2/vendsync/internal/domain/models"
	"github.com/mamadbah2/vendsync/internal/livesync"
	"github.com/mamadbah2/vendsync/internal/metrics"
	"github.com/mamadbah2/vendsync/internal/position"
	"github.com/mamadbah2/vendsync/internal/repository/mongodb"
	"github.com/mamadbah2/vendsync/internal/repository/sheets"
	"github.com/mamadbah2/vendsync/internal/scheduler"
	"github.com/mamadbah2/vendsync/internal/server/handlers"
	"github.com/mamadbah2/vendsync/internal/server/router"
	purchasesvc "github.com/mamadbah2/vendsync/internal/service/purchase"
	reportingsvc "github.com/mamadbah2/vendsync/internal/service/reporting"
	catalogclient "github.com/mamadbah2/vendsync/pkg/clients/catalog"
	"github.com/mamadbah2/vendsync/pkg/clients/ipgeo"
)

const shutdownTimeout = 10 * time.Second

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the discovery daemon and the local view API",
		Long: `Start the vendsync daemon.

The daemon resolves the client position, loads the machine catalog, keeps the
live sync channel open and serves ranked views on APP_PORT until interrupted.

Example:
  vendsync run
  vendsync run --env-file ./kiosk.env --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), rootOpts)
		},
	}
}

func runDaemon(parent context.Context, opts *RootOptions) error {
	cfg, baseLogger, err := setup(opts, "")
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	hub := catalog.NewHub(baseLogger.Named("catalog.hub"))
	g.Go(func() error { return hub.Run(ctx) })

	session := models.Session{Token: cfg.Session.Token, UserID: cfg.Session.UserID}
	if !session.Authenticated() {
		baseLogger.Warn("no session user configured, purchases are disabled")
	}
	client := catalogclient.NewClient(cfg.Catalog, session)

	discovery := catalog.NewService(client, hub, nil, cfg.Catalog.SearchDebounce, baseLogger.Named("svc.catalog"))
	defer discovery.Close()

	resolver := newResolver(cfg.Position, baseLogger.Named("position"))
	resolver.Start(ctx, func(res models.Resolution) {
		if err := hub.SetPosition(ctx, res); err != nil {
			baseLogger.Debug("position not stored", zap.Error(err))
		}
	})

	g.Go(func() error {
		// Failure leaves the list empty; the view API stays up.
		_ = discovery.LoadMachines(ctx)
		return nil
	})

	channel := livesync.NewChannel(cfg.Sync.WebSocketURL, hub, baseLogger.Named("livesync"),
		livesync.WithReconnectDelay(cfg.Sync.ReconnectDelay))
	g.Go(func() error { return channel.Run(ctx) })

	m := metrics.New()
	m.RegisterSyncStats(channel.Stats)

	purchases := purchasesvc.NewService(client, nil, discovery, session, m, baseLogger.Named("svc.purchase"))

	sinks, closeSinks := buildReportSinks(ctx, cfg, baseLogger)
	defer closeSinks()
	reporting := reportingsvc.NewService(hub, channel, nil, baseLogger.Named("svc.reporting"), sinks...)

	sched, err := scheduler.NewScheduler(cfg.Reporting, reporting, baseLogger.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	engine := router.New(cfg.Server,
		handlers.NewViewsHandler(discovery, baseLogger.Named("handlers.views")),
		handlers.NewPurchaseHandler(purchases, baseLogger.Named("handlers.purchase")),
		handlers.NewReportsHandler(reporting, baseLogger.Named("handlers.reports")),
		m, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		baseLogger.Info("shutdown signal received")
		channel.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			baseLogger.Error("graceful shutdown failed", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func newResolver(cfg config.PositionConfig, logger *zap.Logger) *position.Resolver {
	ip := position.NewIPLocator(ipgeo.NewClient(cfg.IPLookupURL, cfg.IPTimeout))
	return position.NewResolver(position.NewDeviceLocator(cfg), ip, cfg.DeviceTimeout, logger)
}

// buildReportSinks connects the optional MongoDB and Sheets sinks. A sink
// that fails to initialise is skipped.
func buildReportSinks(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]reportingsvc.Sink, func()) {
	var sinks []reportingsvc.Sink
	closeFn := func() {}

	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			logger.Error("failed to init mongodb repository", zap.Error(err))
		} else {
			sinks = append(sinks, mongoRepo)
			closeFn = func() {
				if err := mongoRepo.Close(context.Background()); err != nil {
					logger.Error("failed to close mongodb connection", zap.Error(err))
				}
			}
		}
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named("repo.sheets"))
		if err != nil {
			logger.Error("failed to init sheets repository", zap.Error(err))
		} else {
			sinks = append(sinks, sheets.NewReportSheet(sheetsRepo, cfg.Sheets.ReportRange))
		}
	}

	if len(sinks) == 0 {
		logger.Info("no report sinks configured, sync reports are logged only")
	}
	return sinks, closeFn
}
