// Package server provides dependency wiring and the process lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/api"
	"github.com/JakeFAU/progress-service/internal/clock/system"
	"github.com/JakeFAU/progress-service/internal/config"
	"github.com/JakeFAU/progress-service/internal/events"
	"github.com/JakeFAU/progress-service/internal/events/sinks"
	"github.com/JakeFAU/progress-service/internal/metrics"
	"github.com/JakeFAU/progress-service/internal/progress"
	kafkapublisher "github.com/JakeFAU/progress-service/internal/publisher/kafka"
	gcppublisher "github.com/JakeFAU/progress-service/internal/publisher/pubsub"
	"github.com/JakeFAU/progress-service/internal/storage/firestore"
	"github.com/JakeFAU/progress-service/internal/storage/memory"
	pgstore "github.com/JakeFAU/progress-service/internal/storage/postgres"
	"github.com/JakeFAU/progress-service/internal/telemetry"
)

const serviceName = "progress-service"

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     progress.Store
	hub       *events.Hub
	service   *progress.Service
	apiServer *api.Server
	tracer    *sdktrace.TracerProvider
}

// Build creates the application's dependencies. The caller owns the logger.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	app := &App{cfg: cfg, logger: logger}

	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Backend),
		zap.String("publisher", cfg.Publisher.Backend),
	)

	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, serviceName)
		if err != nil {
			return nil, fmt.Errorf("tracer init failed: %w", err)
		}
		app.tracer = tp
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.store = store

	sinkList, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	var feed api.ChangeFeed
	if cfg.Events.Watch {
		broadcaster := sinks.NewBroadcaster()
		sinkList = append(sinkList, broadcaster)
		feed = broadcaster
	}
	var emitter progress.Emitter
	if len(sinkList) > 0 {
		app.hub = events.NewHub(events.Config{
			BufferSize:     cfg.Events.BufferSize,
			MaxBatchEvents: cfg.Events.MaxBatchEvents,
			MaxBatchWait:   cfg.Events.MaxBatchWait,
			Logger:         logger.Named("event_hub"),
		}, sinkList...)
		emitter = app.hub
		logger.Info("event hub initialized", zap.Int("sinks", len(sinkList)))
	}

	app.service, err = progress.NewService(store, progress.ServiceConfig{
		Emitter:          emitter,
		Clock:            system.New(),
		OperationTimeout: cfg.Store.OperationTimeout,
		Logger:           logger.Named("progress"),
	})
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("progress service init failed: %w", err)
	}

	app.apiServer, err = api.NewServer(app.service, api.Options{
		AllowedOrigin:  cfg.CORS.AllowedOrigin,
		RequestTimeout: cfg.Server.RequestTimeout,
		Feed:           feed,
		Logger:         logger.Named("api"),
	})
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("api init failed: %w", err)
	}
	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(a.cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownTimeout := a.cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)
	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return closeErr
}

// Close flushes pending change events and releases the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("event hub close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if err := a.closeStore(); err != nil {
		errs = append(errs, err)
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStore() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (progress.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		store, err := firestore.New(ctx, firestore.Config{
			Credentials: FirestoreCredentials(cfg.Firebase),
			Collection:  cfg.Firebase.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("firestore store init failed: %w", err)
		}
		logger.Info("using firestore store",
			zap.String("project", cfg.Firebase.ProjectID),
			zap.String("collection", cfg.Firebase.Collection),
		)
		return store, nil
	case config.StorePostgres:
		store, err := OpenPostgres(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		if cfg.DB.AutoMigrate {
			if err := pgstore.Migrate(ctx, store.Pool()); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("auto migrate failed: %w", err)
			}
			logger.Info("postgres schema migrated")
		}
		logger.Info("using postgres store")
		return store, nil
	case config.StoreMemory:
		logger.Warn("using in-memory store; state is lost on restart")
		return memory.NewStore(system.New()), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenPostgres dials the pool described by cfg.
func OpenPostgres(ctx context.Context, cfg config.DBConfig) (*pgstore.ProgressStore, error) {
	store, err := pgstore.NewProgressStore(ctx, pgstore.Config{
		DSN:      cfg.DSN,
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store init failed: %w", err)
	}
	return store, nil
}

// FirestoreCredentials maps configuration onto the service-account fields.
func FirestoreCredentials(f config.FirebaseConfig) firestore.Credentials {
	return firestore.Credentials{
		ProjectID:           f.ProjectID,
		PrivateKeyID:        f.PrivateKeyID,
		PrivateKey:          f.PrivateKey,
		ClientEmail:         f.ClientEmail,
		ClientID:            f.ClientID,
		AuthURI:             f.AuthURI,
		TokenURI:            f.TokenURI,
		AuthProviderCertURL: f.AuthProviderX509CertURL,
		ClientCertURL:       f.ClientX509CertURL,
	}
}

func buildSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]events.Sink, error) {
	var sinkList []events.Sink
	if cfg.Events.Metrics {
		promSink, err := sinks.NewPrometheusSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prometheus sink init failed: %w", err)
		}
		sinkList = append(sinkList, promSink)
	}
	if cfg.Events.LogChanges {
		sinkList = append(sinkList, sinks.NewLogSink(logger.Named("changes")))
	}
	switch cfg.Publisher.Backend {
	case config.PublisherPubSub:
		pub, err := gcppublisher.Dial(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		logger.Info("Pub/Sub publisher initialized",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.TopicName),
		)
		sinkList = append(sinkList, sinks.NewPublisherSink(
			pub, config.PublisherPubSub, cfg.PubSub.TopicName,
			logger.Named("pubsub"), sinks.WithCloser(pub.Close),
		))
	case config.PublisherKafka:
		pub, err := kafkapublisher.New(kafkapublisher.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Key:     progress.DocumentID,
		})
		if err != nil {
			return nil, fmt.Errorf("kafka publisher init failed: %w", err)
		}
		logger.Info("Kafka publisher initialized",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
		sinkList = append(sinkList, sinks.NewPublisherSink(
			pub, config.PublisherKafka, cfg.Kafka.Topic,
			logger.Named("kafka"), sinks.WithCloser(pub.Close),
		))
	case config.PublisherNone, "":
		logger.Debug("change notifications disabled")
	default:
		return nil, fmt.Errorf("unknown publisher backend %q", cfg.Publisher.Backend)
	}
	return sinkList, nil
}
