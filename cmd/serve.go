package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigdegenenergy/open-cloud-ops/janus/api"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/cache"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the Janus HTTP API until SIGINT or SIGTERM.

Run history goes to PostgreSQL when database.url is set and script previews
are cached in Redis when redis.addr is set. Either falls back to memory when
unreachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "override server.port")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	cfg := a.cfg

	m, err := a.manager(ctx, true)
	if err != nil {
		return err
	}
	defer a.attachHistory(ctx, m)()

	scriptCache := a.openCache(ctx)
	defer scriptCache.Close()
	m.SetCache(scriptCache, cfg.Redis.TTL)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(logger.Named("http")))
	router.Use(api.CORS(cfg.Server.AllowedOrigins))

	var middleware []gin.HandlerFunc
	if cfg.Server.APIKey != "" {
		middleware = append(middleware, api.APIKeyAuth(cfg.Server.APIKey))
	} else {
		logger.Warn("server.api_key not set, API is unauthenticated")
	}
	if cfg.Server.RateLimit > 0 {
		middleware = append(middleware, api.RateLimit(scriptCache, cfg.Server.RateLimit, cfg.Server.RateWindow, logger))
	}
	mt := metrics.New()
	m.SetMetrics(mt)
	h := api.NewHandler(m, version, logger)
	h.SetMetrics(mt)
	h.RegisterRoutes(router, middleware...)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("janus is ready", zap.String("addr", srv.Addr), zap.String("data_path", cfg.DataPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("janus stopped")
	return nil
}

// openCache connects to Redis when redis.addr is set. A Redis that cannot be
// reached falls back to an in-process cache.
func (a *app) openCache(ctx context.Context) cache.ScriptCache {
	if a.cfg.Redis.Addr == "" {
		return cache.NewMemory()
	}
	c, err := cache.NewRedis(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.logger)
	if err != nil {
		a.logger.Warn("redis unavailable, caching previews in memory", zap.Error(err))
		return cache.NewMemory()
	}
	return c
}
