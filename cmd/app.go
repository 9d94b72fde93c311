package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/agentic-research/yxflow/internal/config"
	"github.com/agentic-research/yxflow/internal/journal"
	"github.com/agentic-research/yxflow/internal/locator"
	"github.com/agentic-research/yxflow/internal/mutate"
	"github.com/agentic-research/yxflow/internal/tools"
	"github.com/agentic-research/yxflow/internal/workflow"
)

// app is everything a command needs, wired from the configuration.
type app struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	journal  *journal.Journal
	registry *tools.Registry
	closed   bool
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*app, error) {
	store := workflow.NewOSStore()
	loc, err := locator.New(store, cfg.Cache.Size)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	edOpts := []mutate.Option{mutate.WithLogger(log), mutate.WithWriteHook(loc.Forget)}
	regOpts := []tools.Option{tools.WithLogger(log)}

	if cfg.Journal.Enabled {
		if cfg.Journal.Driver == journal.DriverSQLite {
			if err := ensureSQLiteDir(cfg.Journal.DSN); err != nil {
				return nil, err
			}
		}
		j, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			return nil, err
		}
		log.Debugw("journal opened", "driver", cfg.Journal.Driver)
		a.journal = j
		edOpts = append(edOpts, mutate.WithRecorder(j))
		regOpts = append(regOpts, tools.WithHistory(j))
	}

	a.registry = tools.New(loc, mutate.New(store, edOpts...), regOpts...)
	return a, nil
}

// ensureSQLiteDir creates the directory of a file-path DSN.
func ensureSQLiteDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dsn), 0o755)
}

func (a *app) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	// Sync on stderr fails on some platforms; nothing to report there.
	_ = a.log.Sync()
	return errors.Join(errs...)
}
