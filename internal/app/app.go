package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vaultindex/internal/config"
	"vaultindex/internal/database"
	"vaultindex/internal/fs"
	"vaultindex/internal/index"
	"vaultindex/internal/metrics"
	"vaultindex/internal/model"
	"vaultindex/internal/vault"
)

// DefaultHistoryLimit is the number of index runs History returns when no limit is given.
const DefaultHistoryLimit = 20

// App is the application layer between the CLI and the indexing engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept vault names or IDs and raw paths, and closes the store and log
// file on Close.
type App struct {
	cfg     *config.Config
	store   *database.SQLStore
	metrics *metrics.Prometheus
	service *index.Service
	clock   index.Clock
	idgen   index.IDGenerator
	op      *Operation
	log     *slog.Logger
	logFile io.Closer
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Reindex", "Serve").
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := database.NewStoreFromConfig(ctx, cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	// A memory database starts empty on every run.
	if cfg.Database.Type == "memory" {
		err = store.MigrateUp()
	} else {
		err = store.CheckMigrations()
	}
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("database schema out of date (run `vaultindex db migrate`): %w", err)
	}

	clock := index.RealClock{}
	op := NewOperation(operation, clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, cfg.Log, op.ID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	fsmgr := fs.NewOSFilesystemManager()
	prom := metrics.NewPrometheus()
	idgen := index.XIDGenerator{}
	svc := index.NewService(store, fsmgr, fs.NewIgnoreRules(cfg.Watcher.Ignore), &slogAdapter{l: logger}, prom, clock, idgen)

	return &App{
		cfg:     cfg,
		store:   store,
		metrics: prom,
		service: svc,
		clock:   clock,
		idgen:   idgen,
		op:      op,
		log:     logger,
		logFile: logFile,
	}, nil
}

// Migrate applies all pending schema migrations to the configured database.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	store, err := database.NewStoreFromConfig(ctx, cfg.Database, cfg.HostID)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer store.Close()

	if err := store.MigrateUp(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// CreateVault validates the provider settings and stores a new vault.
func (a *App) CreateVault(ctx context.Context, name, provider, settings string) (*model.Vault, error) {
	existing, err := a.store.FindVaultByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("vault %q already exists", name)
	}

	v, err := vault.New(a.idgen.New(), name, provider, []byte(settings), a.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := a.store.CreateVault(ctx, v); err != nil {
		return nil, err
	}
	a.log.Info("vault created", "vault", v.Name, "id", v.ID, "provider", v.Provider)
	return v, nil
}

// ListVaults returns all vaults ordered by name.
func (a *App) ListVaults(ctx context.Context) ([]*model.Vault, error) {
	return a.store.ListVaults(ctx)
}

// resolveVault finds a vault by name or by ID in either accepted ID form.
func (a *App) resolveVault(ctx context.Context, ref string) (*model.Vault, error) {
	if id, err := index.ParseID(ref); err == nil {
		v, err := a.store.FindVault(ctx, id)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return a.store.ResolveVault(ctx, ref)
}

// Reindex fully rebuilds a vault's index and records the run in the history.
// Returns the number of records written.
func (a *App) Reindex(ctx context.Context, ref string) (int, error) {
	v, err := a.resolveVault(ctx, ref)
	if err != nil {
		return 0, err
	}

	run, err := a.store.CreateIndexRun(ctx, v.ID, a.clock.Now())
	if err != nil {
		return 0, err
	}

	count, reindexErr := a.service.Reindex(ctx, v)

	status, msg := runOutcome(reindexErr)
	// The run is finished even when ctx was cancelled mid-reindex.
	if err := a.store.FinishIndexRun(context.WithoutCancel(ctx), run.ID, a.clock.Now(), status, int64(count), msg); err != nil {
		if reindexErr != nil {
			a.log.Error("recording index run", "run", run.ID, "error", err)
			return 0, reindexErr
		}
		return count, err
	}
	return count, reindexErr
}

// Sync reconciles one path of a vault against the disk. The path may no
// longer exist; resolution uses filepath.Abs only.
func (a *App) Sync(ctx context.Context, ref, rawPath string) error {
	v, err := a.resolveVault(ctx, ref)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	return a.service.ReconcilePath(ctx, v, absPath)
}

// ListOptions select one page of a vault listing. Parent and After accept
// record IDs in either form; Parent also accepts an absolute path.
type ListOptions struct {
	Parent string
	After  string
	Search string
	Limit  int
}

// List returns one page of records of a vault.
func (a *App) List(ctx context.Context, ref string, opts ListOptions) ([]*model.Record, error) {
	v, err := a.resolveVault(ctx, ref)
	if err != nil {
		return nil, err
	}

	q := model.ListQuery{VaultID: v.ID, Search: opts.Search, Limit: opts.Limit}

	if opts.Parent != "" {
		parentID, err := a.parentID(ctx, v, opts.Parent)
		if err != nil {
			return nil, err
		}
		q.ParentID = &parentID
	}
	if opts.After != "" {
		q.AfterID, err = index.ParseID(opts.After)
		if err != nil {
			return nil, fmt.Errorf("parsing --after: %w", err)
		}
	}
	return a.service.List(ctx, q)
}

func (a *App) parentID(ctx context.Context, v *model.Vault, parent string) (string, error) {
	if !strings.HasPrefix(parent, string(filepath.Separator)) {
		id, err := index.ParseID(parent)
		if err != nil {
			return "", fmt.Errorf("parsing --parent: %w", err)
		}
		return id, nil
	}

	rec, err := a.store.FindByPath(ctx, v.ID, filepath.Clean(parent))
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", fmt.Errorf("%s is not indexed in vault %s", parent, v.Name)
	}
	if rec.Kind != model.KindFolder {
		return "", fmt.Errorf("%s is not a folder", parent)
	}
	return rec.ID, nil
}

// History returns the most recent index runs, newest first.
func (a *App) History(ctx context.Context, limit int) ([]*model.IndexRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return a.store.ListIndexRuns(ctx, limit)
}

// Serve watches every local_folder vault until ctx is cancelled. A value on
// hup reindexes all watched vaults. When metrics.listen_addr is set, metrics
// are served over HTTP for the lifetime of the call.
func (a *App) Serve(ctx context.Context, hup <-chan os.Signal) error {
	logger := &slogAdapter{l: a.log}
	sup := index.NewSupervisor(a.service, a.store, fs.NewFsnotifyNotifier(logger), a.cfg.Watcher.ReindexOnStart)

	n, err := sup.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting watchers: %w", err)
	}
	a.log.Info("serving", "watchers", n)

	srv := a.startMetricsServer()

	for {
		select {
		case <-ctx.Done():
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.log.Warn("metrics server shutdown", "error", err)
				}
				cancel()
			}
			err := sup.Wait()
			for _, st := range sup.Status() {
				a.log.Info("watcher finished", "vault", st.VaultName, "state", st.State.String(), "events", st.Events, "failures", st.Failures, "error", st.Err)
			}
			return err
		case <-hup:
			a.log.Info("reindexing watched vaults")
			if err := sup.ReindexAll(ctx); err != nil {
				a.log.Error("reindex on hangup failed", "error", err)
			}
		}
	}
}

func (a *App) startMetricsServer() *http.Server {
	addr := a.cfg.Metrics.ListenAddr
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.log.Info("serving metrics", "addr", addr)
	return srv
}

// Close closes the store and the log file.
func (a *App) Close() error {
	a.log.Debug("operation finished", "operation", a.op.Name, "elapsed", a.clock.Now().Sub(a.op.StartedAt).Truncate(time.Millisecond))

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
