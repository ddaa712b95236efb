// Package app initializes and runs the sync daemon. It wires the local
// store, the backend clients allowed by the platform capability set and the
// sync engine, and handles graceful shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/infinitumhq/infinitum/internal/config"
	"github.com/infinitumhq/infinitum/internal/engine"
	"github.com/infinitumhq/infinitum/internal/logging"
	"github.com/infinitumhq/infinitum/internal/platform"
	"github.com/infinitumhq/infinitum/internal/recordstore"
	"github.com/infinitumhq/infinitum/internal/remote"
	"github.com/infinitumhq/infinitum/internal/store"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *store.Store
	remote *remote.Client
	engine *engine.Engine
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	st, err := store.Open(ctx, cfg.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	caps := platform.Backends(cfg.Platform)

	var rc *remote.Client
	if caps.Has(platform.BackendRemote) {
		rc, err = remote.NewClient(ctx, remote.Config{
			ProjectID:       cfg.RemoteProjectID,
			CredentialsFile: cfg.RemoteCredentialsFile,
		}, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("remote init error: %w", err)
		}
	} else {
		rc = remote.NewDisabled(logger)
	}

	var rs engine.RecordSyncer
	if caps.Has(platform.BackendRecord) && cfg.RecordBucket != "" {
		client, err := recordstore.New(ctx, recordstore.Config{
			Bucket:       cfg.RecordBucket,
			Region:       cfg.RecordRegion,
			BaseEndpoint: cfg.RecordEndpoint,
			AccessKey:    cfg.RecordAccessKey,
			SecretKey:    cfg.RecordSecretKey,
		}, logger)
		if err != nil {
			_ = rc.Close()
			_ = st.Close()
			return nil, fmt.Errorf("record store init error: %w", err)
		}
		rs = client
	}

	deviceID := cfg.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
		logger.Warn(ctx, "no device id configured, generated one", "device_id", deviceID)
	}

	eng := engine.New(st, rc, rs, deviceID, cfg.Platform, cfg.SyncInterval, logger)

	return &App{config: cfg, logger: logger, store: st, remote: rc, engine: eng}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...", "platform", app.config.Platform)

	app.initSignalHandler(cancelFunc)

	if err := app.engine.Start(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}

	<-ctx.Done()

	app.engine.Close()
	if err := app.remote.Close(); err != nil {
		app.logger.Warn(ctx, "remote close error", "error", err)
	}
	if err := app.store.Close(); err != nil {
		app.logger.Warn(ctx, "store close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
