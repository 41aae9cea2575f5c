package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	escholapi "github.com/cdl-publishing/eschol-connector/internal/adapter/eschol"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/ezid"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/epub"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/history"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/journal"
	"github.com/cdl-publishing/eschol-connector/internal/adapter/postgres/token"
	"github.com/cdl-publishing/eschol-connector/internal/blobstore"
	"github.com/cdl-publishing/eschol-connector/internal/config"
	"github.com/cdl-publishing/eschol-connector/internal/service/deposit"
	"github.com/cdl-publishing/eschol-connector/internal/service/render"
	"github.com/cdl-publishing/eschol-connector/internal/tasks"
	"github.com/cdl-publishing/eschol-connector/internal/transport/middleware"
	"github.com/cdl-publishing/eschol-connector/internal/transport/rest"
)

// issueBatchTimeout bounds one background issue deposit batch.
const issueBatchTimeout = 30 * time.Minute

// Components holds the wired repositories and services. One-shot commands
// build the same graph as the server and call a single service method.
type Components struct {
	Pool    *pgxpool.Pool
	Journal *journal.Repo
	Epubs   *epub.Repo
	History *history.Repo
	Tokens  *token.Repo
	Blobs   *blobstore.Store
	Deposit *deposit.Service
}

// BuildComponents connects to the database and wires the service graph.
// The caller owns Pool and must close it.
func BuildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	journalRepo := journal.New(pool)
	epubRepo := epub.New(pool)
	historyRepo := history.New(pool)
	tokenRepo := token.New(pool)
	blobs := blobstore.New(cfg.Render.FilesDir)

	client := escholapi.NewClient(cfg.Eschol, logger)

	renderSvc := render.NewService(logger, journalRepo, epubRepo, tokenRepo, client, blobs,
		cfg.Render, cfg.Deposit, cfg.Eschol)

	depositSvc := deposit.NewService(logger, journalRepo, epubRepo, historyRepo, client, renderSvc,
		cfg.Deposit, cfg.Eschol)
	if cfg.EZID.Configured() {
		depositSvc.SetRegistrar(ezid.New(cfg.EZID, logger))
	}

	return &Components{
		Pool:    pool,
		Journal: journalRepo,
		Epubs:   epubRepo,
		History: historyRepo,
		Tokens:  tokenRepo,
		Blobs:   blobs,
		Deposit: depositSvc,
	}, nil
}

// Run is the application entry point: it loads configuration, wires the
// service graph, and serves HTTP until ctx is canceled. Shutdown drains
// in-flight requests and background issue batches before returning.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting connector",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.Bool("eschol_configured", cfg.Eschol.Configured()),
		slog.Bool("ezid_configured", cfg.EZID.Configured()),
	)

	comps, err := BuildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Pool.Close()

	runner := tasks.NewRunner(logger, issueBatchTimeout)
	comps.Deposit.SetTaskRunner(runner)

	healthHandler := rest.NewHealthHandler(comps.Pool, BuildVersion())
	depositHandler := rest.NewDepositHandler(comps.Deposit, logger)
	downloadHandler := rest.NewDownloadHandler(comps.Tokens, comps.Journal, comps.Blobs, logger)

	router := rest.NewRouter(healthHandler, depositHandler, downloadHandler)
	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logger(logger),
	)(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.String("error", err.Error()))
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Error("task runner shutdown", slog.String("error", err.Error()))
	}

	logger.Info("stopped")
	return nil
}
