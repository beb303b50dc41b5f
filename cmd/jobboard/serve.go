package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/app"
	"github.com/Dest1on/jobboard/internal/cache"
	"github.com/Dest1on/jobboard/internal/cache/redis"
	"github.com/Dest1on/jobboard/internal/config"
	"github.com/Dest1on/jobboard/internal/database"
	"github.com/Dest1on/jobboard/internal/domain/analytics"
	"github.com/Dest1on/jobboard/internal/domain/job"
	"github.com/Dest1on/jobboard/internal/events"
	apphttp "github.com/Dest1on/jobboard/internal/http"
	"github.com/Dest1on/jobboard/internal/http/handlers"
	"github.com/Dest1on/jobboard/internal/http/metrics"
	httpmw "github.com/Dest1on/jobboard/internal/http/middleware"
	"github.com/Dest1on/jobboard/internal/repository/cached"
	"github.com/Dest1on/jobboard/internal/repository/clickhouse"
	"github.com/Dest1on/jobboard/internal/repository/sqlrepo"
	"github.com/Dest1on/jobboard/internal/security"
	"github.com/Dest1on/jobboard/internal/storage"
	"github.com/Dest1on/jobboard/internal/telemetry"
)

func serveCmd(envFile *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			fxApp := fx.New(
				fx.Supply(cfg),
				fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: logger}
				}),
				fx.Provide(
					newLogger,
					newServeDatabase,
					newDialect,
					newRedisCache,
					newJobRepository,
					newApplicationRepository,
					newSink,
					newPublisher,
					newAnalytics,
					metrics.NewCollector,
					newJWTProvider,
					newAuthMiddleware,
					app.NewJobService,
					app.NewApplicationService,
					handlers.NewJobHandler,
					handlers.NewApplicationHandler,
					newRouter,
					newHTTPServer,
				),
				fx.Invoke(registerTracing),
				fx.Invoke(func(db *sql.DB, logger *zap.Logger) error {
					if !migrate {
						return nil
					}
					applied, err := database.Migrate(context.Background(), db, cfg.DBDriver)
					if err != nil {
						return err
					}
					logger.Info("schema migrated", zap.Int("statements", applied))
					return nil
				}),
				fx.Invoke(func(*http.Server) {}),
			)
			if err := fxApp.Err(); err != nil {
				return err
			}
			startCtx, cancel := context.WithTimeout(cmd.Context(), fxApp.StartTimeout())
			defer cancel()
			if err := fxApp.Start(startCtx); err != nil {
				return err
			}
			<-fxApp.Done()
			stopCtx, cancelStop := context.WithTimeout(context.Background(), fxApp.StopTimeout())
			defer cancelStop()
			return fxApp.Stop(stopCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func newServeDatabase(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	db, err := openDatabase(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(db.Close))
	return db, nil
}

// newRedisCache connects when REDIS_URL is set and returns nil otherwise.
func newRedisCache(lc fx.Lifecycle, cfg *config.Config) (*redis.Cache, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts := cache.DefaultOptions()
	opts.RedisURL = cfg.RedisURL
	opts.DefaultTTL = cfg.JobCacheTTL
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := redis.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(c.Close))
	return c, nil
}

// newJobRepository puts the read-through cache in front of the SQL store
// when redis is configured.
func newJobRepository(cfg *config.Config, db *sql.DB, dialect sqlrepo.Dialect, c *redis.Cache, logger *zap.Logger) job.Repository {
	store := sqlrepo.NewJobRepository(db, dialect)
	if c == nil {
		return store
	}
	logger.Info("job cache enabled", zap.Duration("ttl", cfg.JobCacheTTL))
	return cached.NewJobRepository(store, c, cfg.JobCacheTTL, logger)
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Nop{}, nil
	}
	publisher, err := events.Connect(cfg.NATSURL, cfg.NATSConnTimeout, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(publisher.Close))
	return publisher, nil
}

func newAnalytics(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (analytics.Repository, error) {
	if cfg.ClickHouseAddr == "" {
		return analytics.Discard{}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := clickhouse.Open(ctx, clickhouse.Options{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(conn.Close))
	logger.Info("analytics events go to clickhouse", zap.String("addr", cfg.ClickHouseAddr))
	return clickhouse.NewAnalyticsRepository(conn), nil
}

func newJWTProvider(cfg *config.Config) *security.JWTProvider {
	return security.NewJWTProvider(cfg.JWTSecret, cfg.JWTIssuer)
}

func newAuthMiddleware(provider *security.JWTProvider) *httpmw.AuthMiddleware {
	return httpmw.NewAuthMiddleware(provider)
}

type routerParams struct {
	fx.In

	Config       *config.Config
	Logger       *zap.Logger
	Jobs         *handlers.JobHandler
	Applications *handlers.ApplicationHandler
	Auth         *httpmw.AuthMiddleware
	Metrics      *metrics.Collector
	Sink         storage.Sink
}

func newRouter(p routerParams) http.Handler {
	deps := apphttp.RouterDependencies{
		JobHandler:         p.Jobs,
		ApplicationHandler: p.Applications,
		AuthMiddleware:     p.Auth,
		Metrics:            p.Metrics,
		Logger:             p.Logger,
		RequestTimeout:     p.Config.RequestTimeout,
	}
	if local, ok := p.Sink.(*storage.Local); ok {
		deps.Uploads = http.StripPrefix("/uploads", local.Handler())
	}
	return apphttp.NewRouter(deps)
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, logger *zap.Logger) *http.Server {
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// uploads of large resumes need more than the handler timeout to arrive
		ReadTimeout:  cfg.RequestTimeout + 30*time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			logger.Info("API started", zap.String("addr", server.Addr))
			go func() {
				if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
	return server
}

func registerTracing(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) error {
	if cfg.OTELEndpoint == "" {
		return nil
	}
	shutdown, err := telemetry.InitTracer(context.Background(), "jobboard", cfg.ServiceVersion, cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	logger.Info("tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
	lc.Append(fx.StopHook(shutdown))
	return nil
}
