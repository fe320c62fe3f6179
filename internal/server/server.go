// Package server provides functionalities to start and manage the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Acr4niu5/beatsync-local/internal/config"
	"github.com/Acr4niu5/beatsync-local/internal/logging"
	"github.com/Acr4niu5/beatsync-local/internal/metrics"
	"github.com/Acr4niu5/beatsync-local/internal/server/media"
	"github.com/Acr4niu5/beatsync-local/internal/server/storage"
	"github.com/Acr4niu5/beatsync-local/pkg/local"
	"github.com/Acr4niu5/beatsync-local/pkg/object"
	"github.com/Acr4niu5/beatsync-local/pkg/r2"
	"github.com/Acr4niu5/beatsync-local/pkg/sqlite"

	"golang.org/x/sync/errgroup"
)

// OpenStorage binds the backend selected by cfg.Mode. The caller closes it.
func OpenStorage(ctx context.Context, cfg config.Config) (object.ObjectStorage, error) {
	switch cfg.Mode {
	case object.ModeRemote:
		logging.Info("using R2 as object storage backend", logging.String("bucket", cfg.R2.Bucket))
		backend := &r2.Storage{}
		if err := backend.Init(ctx, cfg.R2); err != nil {
			return nil, err
		}
		return backend, nil
	case object.ModeLocal:
		logging.Info("using local filesystem as object storage backend", logging.String("root", cfg.MediaRoot))
		localCfg := local.Config{Root: cfg.MediaRoot, CreateDirs: true}
		if cfg.IndexDriver != "" {
			idx := &sqlite.Index{}
			if err := idx.Init(ctx, sqlite.Config{Driver: cfg.IndexDriver, Source: cfg.IndexSource}); err != nil {
				return nil, fmt.Errorf("open media index: %w", err)
			}
			localCfg.Index = idx
		}
		backend := &local.Storage{}
		if err := backend.Init(ctx, localCfg); err != nil {
			if localCfg.Index != nil {
				localCfg.Index.Close(ctx)
			}
			return nil, err
		}
		return backend, nil
	}
	return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
}

// NewRouter builds the full HTTP surface over store.
func NewRouter(store object.ObjectStorage, maxUpload int64) http.Handler {
	// Mux definition start
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	handle(mux, "/metrics", metrics.Handler())
	storageHandler := storage.StorageHandler(store, maxUpload)
	handle(mux, "/default-audio", storageHandler, metrics.Middleware("/default-audio"))
	handle(mux, "/upload/direct", storageHandler, metrics.Middleware("/upload/direct"))
	// Mux definition end

	// ServeMux would redirect paths holding dot segments before a handler saw
	// them, so media keys are dispatched on the raw path first.
	mediaHandler := chain(media.NewHandler(store), metrics.Middleware("/media"))
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.EscapedPath(), media.Prefix) {
			mediaHandler.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
	return chain(root, logging.Middleware, corsMiddleware)
}

// Serve runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM
// arrives, then drains in-flight requests for at most cfg.ShutdownTimeout.
func Serve(ctx context.Context, cfg config.Config) error {
	store, err := OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logging.Warn("close storage", logging.Err(err))
		}
	}()

	lis, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	srv := &http.Server{
		Handler:           NewRouter(store, cfg.MaxUploadBytes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("starting server", logging.String("addr", lis.Addr().String()), logging.String("mode", string(cfg.Mode)))
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logging.Info("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logging.Info("server stopped")
	return nil
}
