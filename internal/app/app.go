package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/blob"
	"github.com/Sundussheikhdev/sync-board-BE/internal/config"
	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store/sqlite"
	transporthttp "github.com/Sundussheikhdev/sync-board-BE/internal/transport/http"
)

// App wires together the session manager, persistence, and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	sweepInterval   time.Duration
	mgr             *session.Manager
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	blobs, err := blob.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	mgr := session.NewManager(st, logger, session.Options{
		ConnectionTimeout: cfg.ConnectionTimeout,
		RoomGracePeriod:   cfg.RoomGracePeriod,
	})

	server := transporthttp.NewServer(mgr, st, blobs, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		sweepInterval:   cfg.HeartbeatInterval,
		mgr:             mgr,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.sweepLoop(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// sweepLoop drives the periodic reaping of stale connections and expired
// rooms until the context ends.
func (a *App) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if reaped := a.mgr.SweepStale(ctx); reaped > 0 {
				a.log.Info().Int("reaped", reaped).Msg("closed stale connections")
			}
			if purged := a.mgr.SweepRooms(ctx); purged > 0 {
				a.log.Info().Int("purged", purged).Msg("purged expired rooms")
			}
		case <-ctx.Done():
			return
		}
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
