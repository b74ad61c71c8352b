package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgchart/modules/orgchart"
	"github.com/iota-uz/orgchart/modules/orgchart/infrastructure/persistence"
	"github.com/iota-uz/orgchart/pkg/application"
	"github.com/iota-uz/orgchart/pkg/authz"
	"github.com/iota-uz/orgchart/pkg/configuration"
	"github.com/iota-uz/orgchart/pkg/eventbus"
	"github.com/iota-uz/orgchart/pkg/metrics"
	"github.com/iota-uz/orgchart/pkg/middleware"
	"github.com/iota-uz/orgchart/pkg/outbox"
	ebdispatcher "github.com/iota-uz/orgchart/pkg/outbox/dispatchers/eventbus"
	"github.com/iota-uz/orgchart/pkg/realtime"
	"github.com/iota-uz/orgchart/pkg/server"
	"github.com/iota-uz/orgchart/pkg/tracing"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API together with the outbox relay and cleaner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	conf, err := configuration.Load(envFiles)
	if err != nil {
		return err
	}
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, conf.OpenTelemetry, conf.GoAppEnvironment, logger)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	pool, err := connectDB(ctx, conf)
	if err != nil {
		return err
	}
	defer pool.Close()

	gate, err := authz.NewGate(authz.ConfigFrom(conf, persistence.NewMembershipRepository()))
	if err != nil {
		return fmt.Errorf("authz: %w", err)
	}

	bus := eventbus.New(logger)
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: bus,
		Logger:   logger,
	})
	app.RegisterMiddleware(
		middleware.WithLogger(logger, middleware.LoggerOptions{RequestIDHeader: conf.RequestIDHeader}),
		middleware.Provide(pool),
	)

	var rt *realtime.Broadcaster
	if conf.Redis.RealtimeEnabled {
		rdb, err := realtime.NewClient(ctx, conf.Redis.URL)
		if err != nil {
			return fmt.Errorf("realtime: %w", err)
		}
		defer rdb.Close()
		rt = realtime.NewBroadcaster(rdb, conf.Redis.RealtimeChannelPrefix, logger)
	}

	if err := app.RegisterModules(orgchart.NewModule(&orgchart.ModuleOptions{
		Gate:         gate,
		MaxBulkItems: conf.Bulk.MaxItems,
		ActorHeader:  conf.ActorHeader,
		Realtime:     rt,
	})); err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	startOutboxBackground(ctx, conf, pool, logger, bus)

	logger.Infof("Listening on: %s", conf.SocketAddress)
	return server.NewHTTPServer(app).Start(ctx, conf.SocketAddress)
}

func startOutboxBackground(
	ctx context.Context,
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	bus eventbus.EventBus,
) {
	outboxLog := logger.WithFields(logrus.Fields{
		"component": "outbox",
		"table":     outbox.TableLabel(orgchart.OutboxTable),
	})

	store, err := outbox.NewPgStore(pool, orgchart.OutboxTable)
	if err != nil {
		outboxLog.WithError(err).Warn("outbox: failed to create store")
		return
	}

	if conf.Outbox.RelayEnabled {
		relay, err := outbox.NewRelay(store, orgchart.OutboxTable, ebdispatcher.New(bus, orgchart.Decoders()), outbox.RelayOptions{
			PollInterval:    conf.Outbox.RelayPollInterval,
			BatchSize:       conf.Outbox.RelayBatchSize,
			LockTTL:         conf.Outbox.RelayLockTTL,
			MaxAttempts:     conf.Outbox.RelayMaxAttempts,
			LastErrorMaxLen: conf.Outbox.LastErrorMaxBytes,
			Logger:          outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("outbox: failed to create relay")
		} else {
			go func() {
				if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					outboxLog.WithError(err).Error("outbox: relay stopped")
				}
			}()
		}
	}

	if conf.Outbox.CleanerEnabled {
		cleaner, err := outbox.NewCleaner(store, orgchart.OutboxTable, outbox.CleanerOptions{
			Interval:  conf.Outbox.CleanerInterval,
			Retention: conf.Outbox.CleanerRetention,
			Logger:    outboxLog,
		})
		if err != nil {
			outboxLog.WithError(err).Warn("outbox: failed to create cleaner")
			return
		}
		go func() {
			if err := cleaner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				outboxLog.WithError(err).Error("outbox: cleaner stopped")
			}
		}()
	}
}
