package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pista1997/CertReg/internal/auth"
	"github.com/pista1997/CertReg/internal/config"
	"github.com/pista1997/CertReg/internal/importer"
	"github.com/pista1997/CertReg/internal/logging"
	"github.com/pista1997/CertReg/internal/notify"
	"github.com/pista1997/CertReg/internal/store"
	"github.com/pista1997/CertReg/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SES.Enabled {
		mailer, err = notify.NewSESMailer(ctx, notify.SESConfig{
			Region:    cfg.SES.Region,
			AccessKey: cfg.SES.AccessKey,
			SecretKey: cfg.SES.SecretKey,
			From:      cfg.SES.From,
		})
		if err != nil {
			return err
		}
	}
	sweeper := notify.NewSweeper(st, mailer, cfg.Sweep.WindowDays)

	clearPolicy, err := importer.ParseClearPolicy(cfg.Import.ClearPolicy)
	if err != nil {
		return err
	}
	imp := importer.New(st, importer.Options{
		MaxFileSize:   cfg.Import.MaxFileSize,
		MaxRows:       cfg.Import.MaxRows,
		DecodeTimeout: cfg.Import.DecodeTimeout,
		Clear:         clearPolicy,
	})

	sessions := auth.NewSessions(cfg.Auth.SessionTTL)
	srv := web.NewServer(st, imp, sweeper, sessions, cfg)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr())
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
