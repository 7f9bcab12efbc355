package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/config"
	"github.com/mamadbah2/packtrack/internal/repository/gridhttp"
	"github.com/mamadbah2/packtrack/internal/repository/memstore"
	"github.com/mamadbah2/packtrack/internal/repository/mongodb"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
	"github.com/mamadbah2/packtrack/internal/scheduler"
	"github.com/mamadbah2/packtrack/internal/server/handlers"
	"github.com/mamadbah2/packtrack/internal/server/router"
	auditsvc "github.com/mamadbah2/packtrack/internal/service/audit"
	packagingsvc "github.com/mamadbah2/packtrack/internal/service/packaging"
	"github.com/mamadbah2/packtrack/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, closeStore, err := buildStore(context.Background(), cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init row store", zap.Error(err))
	}
	defer closeStore()

	var mirrors []auditsvc.Sink
	if cfg.Sheets.MirrorEnabled() {
		sink, err := auditsvc.NewSheetsSink(context.Background(), cfg.Sheets)
		if err != nil {
			baseLogger.Fatal("failed to init sheets audit mirror", zap.Error(err))
		}
		mirrors = append(mirrors, sink)
		baseLogger.Info("sheets audit mirror enabled")
	}

	auditSvc := auditsvc.NewService(store, baseLogger.Named("svc.audit"), mirrors...)
	recipeCache := packagingsvc.NewRecipeCache(cfg.Cache.RecipeSize, cfg.Cache.RecipeTTL)
	packagingSvc := packagingsvc.NewService(store, auditSvc, recipeCache, baseLogger.Named("svc.packaging"))

	packagingHandler := handlers.NewPackagingHandler(packagingSvc, baseLogger.Named("handlers.packaging"))
	auditHandler := handlers.NewAuditHandler(auditSvc, baseLogger.Named("handlers.audit"))
	engine := router.New(packagingHandler, auditHandler, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(*cfg, auditSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("store_backend", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildStore selects the row-store backend from configuration and returns it
// with its cleanup function.
func buildStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (rowstore.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		store, err := mongodb.NewStore(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}
		return store, closeFn, nil
	case config.BackendGrid:
		return gridhttp.NewStore(cfg.Grid), func() {}, nil
	default:
		return memstore.New(), func() {}, nil
	}
}
