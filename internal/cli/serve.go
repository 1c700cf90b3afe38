package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runnerr0/historylens/internal/config"
	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/retention"
	"github.com/runnerr0/historylens/internal/server"
	"github.com/runnerr0/historylens/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Pretty)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dbPath, err := resolveDBPath(c.globals, cfg)
	if err != nil {
		return err
	}
	store, db, err := storage.Open(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	e := newEnv(cfg, store, db, log, dbPath)
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.executeWithEnv(ctx, e)
}

func (c *ServeCommand) applyOverrides(cfg *config.Config) error {
	if c.Host != "" {
		cfg.Daemon.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	return cfg.Validate()
}

// executeWithEnv runs the daemon until ctx is done or the server fails.
func (c *ServeCommand) executeWithEnv(ctx context.Context, e *env) error {
	e.log.Infof("starting historylens %s on %s", c.version, e.cfg.Addr())
	e.log.Info("database opened", logger.String("path", e.dbPath))

	added, err := e.svc.Init(ctx)
	if err != nil {
		return fmt.Errorf("initialize rules: %w", err)
	}
	e.log.Info("rules ready", logger.Int("defaults_added", added))

	sweeper := retention.NewSweeper(e.store, e.log, retention.Options{
		Interval:  e.cfg.SweepInterval(),
		Threshold: e.cfg.UnknownRetention(),
		Audit:     e.cfg.Logging.AuditLog,
	})
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start retention sweeper: %w", err)
	}
	defer sweeper.Stop()
	e.log.Info("retention sweeper started",
		logger.Duration("interval", e.cfg.SweepInterval()),
		logger.Duration("threshold", e.cfg.UnknownRetention()))

	srv := server.New(e.cfg, e.log, server.Deps{
		Service:   e.svc,
		Version:   c.version,
		StartTime: time.Now(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		e.log.Info("shutting down gracefully")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	e.log.Info("historylens stopped cleanly")
	return nil
}
