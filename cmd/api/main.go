package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"paycanvas.org/internal/auth"
	"paycanvas.org/internal/cache"
	"paycanvas.org/internal/config"
	"paycanvas.org/internal/features"
	"paycanvas.org/internal/httpapi"
	"paycanvas.org/internal/masters"
	"paycanvas.org/internal/migrate"
	"paycanvas.org/internal/obs"
	"paycanvas.org/internal/provisioning"
	"paycanvas.org/internal/store/memory"
	"paycanvas.org/internal/store/pg"
	"paycanvas.org/migrations"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// backend is what both the Postgres and the in-memory stores provide.
type backend interface {
	auth.Store
	features.Store
	Stores() masters.Repository
	Provisioning() provisioning.Store
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Service.Name)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Инициализация observability
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var (
		store backend
		ready httpapi.Readiness
	)
	if cfg.Database.DSN != "" {
		db, err := pg.Open(cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.Database.AutoMigrate {
			mgr := migrate.NewManager(db.DB(), migrations.SQL(), migrations.Seeds(), migrate.WithLogger(logger))
			if err := mgr.Up(ctx); err != nil {
				return err
			}
			if err := mgr.Seed(ctx); err != nil {
				return err
			}
		}
		store, ready.DB = db, db
		logger.Info("using postgres store")
	} else {
		mem := memory.New()
		if err := mem.SeedDemo(ctx); err != nil {
			return err
		}
		store = mem
		logger.Warn("PAYCANVAS_PG_DSN not set, using in-memory demo store")
	}

	authOpts := []auth.ServiceOption{
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
		auth.WithLogger(logger),
	}
	var invalidator features.Invalidator
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		fc := cache.NewFeatures(client, store.Features(ctx), cfg.Redis.CacheTTL, logger)
		authOpts = append(authOpts, auth.WithFeatureStore(fc))
		invalidator = fc
		ready.Cache = fc
		logger.Info("entitlement cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	codec, err := auth.NewCodec(cfg.Auth.JWTSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTokenTTL(cfg.Auth.AccessTTL),
		auth.WithLeeway(cfg.Auth.Leeway))
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(store, codec, authOpts...)
	if err != nil {
		return err
	}

	trusted, err := httpapi.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return err
	}

	api := httpapi.New(httpapi.Deps{
		Auth:           authSvc,
		Codec:          codec,
		Features:       features.NewService(store, invalidator, logger),
		Stores:         masters.NewService(store.Stores(), logger),
		Provisioning:   provisioning.NewService(store.Provisioning(), logger),
		Ready:          ready,
		Logger:         logger,
		Version:        version,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		TrustedProxies: trusted,
		LoginRate:      cfg.Auth.LoginRate,
		LoginBurst:     cfg.Auth.LoginBurst,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		auth.NewJanitor(authSvc.Sessions(), cfg.Auth.SweepInterval, logger).Run(ctx)
	}()

	errCh := make(chan error, 2)

	var grpcSrv *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		grpcSrv = grpc.NewServer()
		health := httpapi.NewHealthServer(ready, 10*time.Second, logger)
		health.Register(grpcSrv)
		wg.Add(1)
		go func() {
			defer wg.Done()
			health.Run(ctx)
		}()
		go func() {
			logger.Info("grpc health listening", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	go func() {
		logger.Info("starting paycanvas-api", zap.String("version", version), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	wg.Wait()
	return runErr
}
