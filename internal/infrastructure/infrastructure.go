// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, metrics and the
// label ledger) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JaimeStill/concord/internal/config"
	"github.com/JaimeStill/concord/internal/ledger"
	"github.com/JaimeStill/concord/internal/metrics"
	"github.com/JaimeStill/concord/internal/taxonomy"
	"github.com/JaimeStill/concord/pkg/database"
	"github.com/JaimeStill/concord/pkg/lifecycle"
	"github.com/JaimeStill/concord/pkg/retry"
	"github.com/JaimeStill/concord/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Database is nil unless the ledger uses the SQL store. Storage is nil when
// no blob provider is configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Registry  *prometheus.Registry
	Metrics   *metrics.Recorder
	Taxonomy  *taxonomy.Taxonomy
	Store     ledger.Store
	Ledger    ledger.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(reg)

	tax, err := taxonomy.Load(cfg.Ledger.Taxonomy)
	if err != nil {
		return nil, fmt.Errorf("taxonomy init failed: %w", err)
	}

	var db database.System
	if cfg.Ledger.Store == config.StoreSQL {
		db, err = database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	}

	store, err := openStore(ctx, cfg, db)
	if err != nil {
		return nil, fmt.Errorf("ledger store init failed: %w", err)
	}

	blobs, err := storage.New(ctx, &cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	l := ledger.New(
		store,
		tax,
		retry.NewPolicy(&cfg.Ledger.Retry, nil),
		recorder,
		logger,
		cfg.API.Pagination,
	)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   blobs,
		Registry:  reg,
		Metrics:   recorder,
		Taxonomy:  tax,
		Store:     store,
		Ledger:    l,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, db database.System) (ledger.Store, error) {
	match := cfg.Ledger.Match()
	switch cfg.Ledger.Store {
	case config.StoreMemory:
		return ledger.NewMemoryStore(match), nil
	case config.StoreSheet:
		return ledger.OpenSheetStore(cfg.Ledger.SheetPath, match)
	default:
		return ledger.NewSQLStore(ctx, db.Connection(), db.Driver(), match, cfg.Ledger.Audit)
	}
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination.
func (i *Infrastructure) Start() error {
	i.Lifecycle.OnClose("ledger", i.Logger, i.Store.Close)

	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}
	return nil
}

// Close releases the ledger store and database without running the lifecycle.
// Short-lived commands use it in place of Start and Shutdown.
func (i *Infrastructure) Close() error {
	err := i.Store.Close()
	if i.Database != nil {
		if cerr := i.Database.Connection().Close(); err == nil {
			err = cerr
		}
	}
	return err
}
