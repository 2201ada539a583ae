// Package server initializes and runs the botkeeper server. It selects the
// record-store backend, wires the event publisher and record service, and
// starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/botkeeper/botkeeper/internal/logging"
	"github.com/botkeeper/botkeeper/internal/server/config"
	"github.com/botkeeper/botkeeper/internal/server/events"
	"github.com/botkeeper/botkeeper/internal/server/httpapi"
	"github.com/botkeeper/botkeeper/internal/server/records"
	"github.com/botkeeper/botkeeper/internal/server/store"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	handler   http.Handler
	publisher events.Publisher
	closers   []io.Closer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout)

	app := &App{config: cfg, logger: logger}

	recordStore, err := app.initStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app.publisher = app.initPublisher()

	svc := records.NewService(recordStore, app.publisher, logger, cfg)
	app.handler = httpapi.NewRouter(logger, svc, []byte(cfg.SecretKey))

	return app, nil
}

func (app *App) initStore(ctx context.Context) (records.Store, error) {
	switch app.config.StoreBackend {
	case config.BackendFile:
		return store.NewFileStore(app.config.StoreFilePath), nil
	case config.BackendPostgres:
		s, err := store.NewPostgresStore(ctx, app.config.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, s)
		return s, nil
	case config.BackendRedis:
		s := store.NewRedisStore(store.RedisConfig{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
			DB:       app.config.RedisDB,
			Key:      app.config.RedisKey,
		})
		app.closers = append(app.closers, s)
		return s, nil
	case config.BackendS3:
		return store.NewS3Store(ctx, store.S3Config{
			RootUser:     app.config.S3RootUser,
			RootPassword: app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
			Key:          app.config.S3Key,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", app.config.StoreBackend)
	}
}

func (app *App) initPublisher() events.Publisher {
	if app.config.KafkaBrokers == "" {
		return events.Nop{}
	}
	brokers := strings.Split(app.config.KafkaBrokers, ",")
	return events.NewKafkaPublisher(brokers, app.config.KafkaTopic)
}

func (app *App) Run(ctx context.Context) error {

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting http endpoint", "addr", app.config.EndpointAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown error", "error", err)
	}

	if err := app.publisher.Close(); err != nil {
		app.logger.Error(shutdownCtx, "publisher close error", "error", err)
	}

	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Error(shutdownCtx, "close error", "error", err)
		}
	}

	return nil
}
