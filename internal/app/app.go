// Package app initializes and holds long-lived application services.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/NelliaS/junior.guru/internal/club"
	"github.com/NelliaS/junior.guru/internal/config"
	"github.com/NelliaS/junior.guru/internal/logging"
	"github.com/NelliaS/junior.guru/internal/metrics"
	"github.com/NelliaS/junior.guru/internal/platform/discord"
	"github.com/NelliaS/junior.guru/internal/progress"
	"github.com/NelliaS/junior.guru/internal/store"
)

// App wires configuration into the services a sync run needs: logger,
// record sink, history provider, observers, and the optional metrics
// listener. Built once at startup, closed once at exit.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Sink     club.RecordSink
	Provider club.HistoryProvider
	Observer club.Observer

	sinkClose  func() error
	metricsSrv *http.Server
}

// New builds an App from configuration, failing fast when any service
// cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	sink, sinkClose, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Discord.Token == "" {
		return nil, errors.New("discord.token is not set")
	}
	if cfg.Discord.GuildID == "" {
		return nil, errors.New("discord.guild_id is not set")
	}
	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	provider := discord.New(session, cfg.Discord.GuildID, cfg.Crawler.PinLabels, logger)

	observer := progress.Multi{progress.NewLogObserver(logger)}
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Sink:      sink,
		Provider:  provider,
		sinkClose: sinkClose,
	}
	if cfg.Metrics.Enabled {
		observer = append(observer, progress.NewMetricsObserver())
		a.metricsSrv = serveMetrics(cfg.Metrics.Addr, logger)
	}
	a.Observer = observer
	return a, nil
}

func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (club.RecordSink, func() error, error) {
	switch cfg.DB.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.DB.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		logger.Info("using sqlite sink", zap.String("path", cfg.DB.Path))
		s, err := store.OpenSQLite(cfg.DB.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		logger.Info("using postgres sink")
		p, err := store.OpenPostgres(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		return p, func() error { p.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown db.driver %q", cfg.DB.Driver)
	}
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// Close shuts down the services in reverse order of creation.
func (a *App) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.Logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	if a.sinkClose != nil {
		if err := a.sinkClose(); err != nil {
			a.Logger.Warn("closing sink", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
