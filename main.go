package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/fernhealth/fern/config"
	"github.com/fernhealth/fern/internal/repositories/clinicalnote"
	"github.com/fernhealth/fern/internal/repositories/goal"
	"github.com/fernhealth/fern/internal/repositories/habit"
	"github.com/fernhealth/fern/internal/repositories/habitlog"
	"github.com/fernhealth/fern/internal/repositories/link"
	"github.com/fernhealth/fern/internal/repositories/moodlog"
	"github.com/fernhealth/fern/internal/repositories/relapse"
	"github.com/fernhealth/fern/internal/repositories/task"
	"github.com/fernhealth/fern/internal/repositories/trackedperson"
	"github.com/fernhealth/fern/pkg/database"
	"github.com/fernhealth/fern/pkg/events"
	fernkafka "github.com/fernhealth/fern/pkg/kafka"
	"github.com/fernhealth/fern/pkg/middleware"
	fernredis "github.com/fernhealth/fern/pkg/redis"
	"github.com/fernhealth/fern/pkg/relationships"
	"github.com/fernhealth/fern/pkg/reports"
	dashboardroute "github.com/fernhealth/fern/pkg/routes/dashboard"
	goalroute "github.com/fernhealth/fern/pkg/routes/goal"
	habitroute "github.com/fernhealth/fern/pkg/routes/habit"
	"github.com/fernhealth/fern/pkg/routes/health"
	linkroute "github.com/fernhealth/fern/pkg/routes/link"
	moodroute "github.com/fernhealth/fern/pkg/routes/mood"
	noteroute "github.com/fernhealth/fern/pkg/routes/note"
	observerroute "github.com/fernhealth/fern/pkg/routes/observer"
	personroute "github.com/fernhealth/fern/pkg/routes/person"
	relapseroute "github.com/fernhealth/fern/pkg/routes/relapse"
	taskroute "github.com/fernhealth/fern/pkg/routes/task"
	"github.com/fernhealth/fern/pkg/signals"
	"github.com/fernhealth/fern/pkg/startup"
	"github.com/fernhealth/fern/pkg/tracing"
	"github.com/fernhealth/fern/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Errorf("failed to bind configuration: %w", err))
	}

	logger := newLogger(cfg)
	logger.WithField("app", cfg.AppName).Info("Starting fern")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to set up tracing")
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	var db database.DB
	var redisClient *fernredis.Client
	var producer *fernkafka.Producer

	boot := startup.New(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(startup.Func{
		Name: "database",
		StartFn: func(ctx context.Context) error {
			sqlxDB, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, databaseDSN(cfg))
			if err != nil {
				return err
			}
			sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			db = database.NewDatabaseInstance(sqlxDB, logger)
			return nil
		},
		StopFn: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})
	boot.AddDependency(startup.Func{
		Name: "migrations",
		Deps: []string{"database"},
		StartFn: func(ctx context.Context) error {
			instance := db.(*database.DatabaseInstance)
			driver, err := migratepg.WithInstance(instance.DB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
			})
			return migrations.Migrate(cfg.DatabaseName, driver)
		},
	})
	if cfg.RedisEnabled {
		boot.AddDependency(startup.Func{
			Name: "redis",
			StartFn: func(ctx context.Context) error {
				client, err := fernredis.NewClient(fernredis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				redisClient = client
				return nil
			},
			StopFn: func(ctx context.Context) error {
				if redisClient == nil {
					return nil
				}
				return redisClient.Close()
			},
		})
	}
	if cfg.KafkaEnabled {
		boot.AddDependency(startup.Func{
			Name: "kafka",
			StartFn: func(ctx context.Context) error {
				producer = fernkafka.NewProducer(fernkafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			StopFn: func(ctx context.Context) error {
				if producer == nil {
					return nil
				}
				return producer.Close()
			},
		})
	}

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = boot.Stop(stopCtx)
	}()

	// wire the engines
	cache := fernredis.NewDashboardCache(redisClient, time.Duration(cfg.DashboardTTLSecs)*time.Second, logger)

	var emitter *events.Emitter
	if producer != nil {
		emitter = events.NewEmitter(producer, logger)
	} else {
		emitter = events.NewEmitter(nil, logger)
	}

	persons := trackedperson.NewRepository(db, logger)
	habits := habit.NewRepository(db, logger)
	habitLogs := habitlog.NewRepository(db, logger)
	moodLogs := moodlog.NewRepository(db, logger)
	relapses := relapse.NewRepository(db, persons, logger)
	links := link.NewRepository(db, logger)
	notes := clinicalnote.NewRepository(db, logger)
	goals := goal.NewRepository(db, logger)
	tasks := task.NewRepository(db, logger)

	manager := relationships.NewManager(links, persons, emitter, logger)
	noteService := relationships.NewNoteService(notes, persons, manager, logger)
	taskService := relationships.NewTaskService(tasks, persons, manager, logger)
	aggregator := signals.NewAggregator(signals.NewTextDescriber())
	reportService := reports.NewService(persons, habits, habitLogs, moodLogs, relapses, goals, manager, aggregator, cache, logger)

	if err := registerDependencies(logger, persons, habits, habitLogs, moodLogs, relapses, goals, manager, noteService, taskService, reportService, emitter, cache); err != nil {
		logger.WithError(err).Error("Failed to register dependencies")
		os.Exit(1)
	}

	e := newServer(cfg, logger)

	var redisProbe interface{ Ping(ctx context.Context) error }
	if redisClient != nil {
		redisProbe = redisClient
	}
	checker := health.NewChecker(db, redisProbe, version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	api := e.Group("/api")
	personroute.Register(api.Group("/people"))
	habitroute.Register(api.Group("/habits"))
	moodroute.Register(api.Group("/moods"))
	relapseroute.Register(api.Group("/relapses"))
	linkroute.Register(api.Group("/links"))
	noteroute.Register(api.Group("/notes"))
	taskroute.Register(api.Group("/tasks"))
	goalroute.Register(api.Group("/goals"))
	dashboardroute.Register(api.Group("/dashboard"))
	observerroute.Register(api.Group("/observer"))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server stopped")
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newServer(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	return e
}

func registerDependencies(
	logger ectologger.Logger,
	persons *trackedperson.Repository,
	habits *habit.Repository,
	habitLogs *habitlog.Repository,
	moodLogs *moodlog.Repository,
	relapses *relapse.Repository,
	goals *goal.Repository,
	manager *relationships.Manager,
	noteService *relationships.NoteService,
	taskService *relationships.TaskService,
	reportService *reports.Service,
	emitter *events.Emitter,
	cache *fernredis.DashboardCache,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	registrations := []error{
		ectoinject.RegisterInstance[ectologger.Logger](container, logger),
		ectoinject.RegisterInstance[*trackedperson.Repository](container, persons),
		ectoinject.RegisterInstance[*habit.Repository](container, habits),
		ectoinject.RegisterInstance[*habitlog.Repository](container, habitLogs),
		ectoinject.RegisterInstance[*moodlog.Repository](container, moodLogs),
		ectoinject.RegisterInstance[*relapse.Repository](container, relapses),
		ectoinject.RegisterInstance[*goal.Repository](container, goals),
		ectoinject.RegisterInstance[*relationships.Manager](container, manager),
		ectoinject.RegisterInstance[*relationships.NoteService](container, noteService),
		ectoinject.RegisterInstance[*relationships.TaskService](container, taskService),
		ectoinject.RegisterInstance[*reports.Service](container, reportService),
		ectoinject.RegisterInstance[*events.Emitter](container, emitter),
		ectoinject.RegisterInstance[*fernredis.DashboardCache](container, cache),
	}
	for _, err := range registrations {
		if err != nil {
			return err
		}
	}
	return nil
}

func databaseDSN(cfg config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
}

func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Protocol: cfg.TracingOTLPProtocol,
		Insecure: true,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}
