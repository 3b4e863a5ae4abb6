package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/roach88/endorser/internal/allowlist"
	"github.com/roach88/endorser/internal/classify"
	"github.com/roach88/endorser/internal/config"
	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/ingest"
	"github.com/roach88/endorser/internal/ledger"
	"github.com/roach88/endorser/internal/reconcile"
	"github.com/roach88/endorser/internal/store"
)

// errNoLedger fails every endorsement when no admin URL is configured, so
// passes leave requests pending instead of dropping them.
var errNoLedger = errors.New("ledger admin_url is not configured")

// app is the wiring shared by every command.
type app struct {
	cfg    config.Config
	store  *store.Store
	engine *reconcile.Engine
	logger *slog.Logger
}

// openApp loads configuration, sets up logging and opens the store.
// Failures are reported through f and returned as command errors.
func openApp(opts *RootOptions, f *OutputFormatter) (*app, error) {
	cfg, err := config.Load(opts.Config, os.Getenv)
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	// Configure logging based on verbose flag
	logLevel := cfg.SlogLevel()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f.errWriter(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	var (
		resolver classify.SchemaResolver
		endorser endorse.Endorser = endorse.EndorserFunc(func(context.Context, endorse.Transaction) error {
			return errNoLedger
		})
	)
	if cfg.Ledger.AdminURL != "" {
		client := ledger.NewClient(cfg.Ledger.AdminURL, cfg.Ledger.APIKey).WithTimeout(cfg.Ledger.Timeout)
		resolver, endorser = client, client
	} else {
		logger.Warn("no ledger configured; credential definitions cannot be classified and nothing will be endorsed")
	}

	engine := reconcile.NewEngine(classify.NewClassifier(resolver, logger), endorser, reconcile.StoreOpener(st), logger)
	return &app{cfg: cfg, store: st, engine: engine, logger: logger}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

func (a *app) allowlist() *allowlist.Service {
	return allowlist.NewService(a.store, a.engine, a.logger)
}

func (a *app) ingestor() *ingest.Ingestor {
	return ingest.NewIngestor(ingest.StoreOpener(a.store), a.engine, a.logger)
}
