package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/eveview/internal/api"
	"github.com/kiranshivaraju/eveview/internal/api/handler"
	mw "github.com/kiranshivaraju/eveview/internal/api/middleware"
	"github.com/kiranshivaraju/eveview/internal/api/response"
	"github.com/kiranshivaraju/eveview/internal/backend"
	"github.com/kiranshivaraju/eveview/internal/cache"
	"github.com/kiranshivaraju/eveview/internal/config"
	"github.com/kiranshivaraju/eveview/internal/credential"
	"github.com/kiranshivaraju/eveview/internal/query"
	"github.com/kiranshivaraju/eveview/internal/results"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 30 * time.Second

// ServeOptions run the JSON view server. Everything except the listen
// port comes from the environment.
type ServeOptions struct {
	Port int
}

func DefaultServeOptions() *ServeOptions {
	return &ServeOptions{}
}

func NewCmdServe() *cobra.Command {
	o := DefaultServeOptions()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the view server that drives result fetching over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ServeOptions) Bind(fs *pflag.FlagSet) {
	fs.IntVarP(&o.Port, "port", "p", o.Port, "Listen port; overrides EVEVIEW_PORT when set")
}

func (o *ServeOptions) Validate(_ []string) error {
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("--port must be between 1 and 65535, got %d", o.Port)
	}
	return nil
}

func (o *ServeOptions) Run(ctx context.Context) error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.Port > 0 {
		cfg.Server.Port = o.Port
	}
	SetupLogging(os.Stdout, cfg.Server.SlogLevel())
	slog.Info("config loaded", "env", cfg.Server.Env, "backend", cfg.Backend.BaseURL)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Counter and page cache
	var (
		counters  cache.Cache = cache.NewMemoryCache()
		pageCache cache.Cache
	)
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		counters, pageCache = redisCache, redisCache
	}

	// 3. Results service client
	store := credential.NewStore(cfg.Backend.Token)
	expiry := credential.NewExpiryHandler(store, cfg.View.LoginURL)

	var client backend.Client = backend.NewHTTPClient(cfg.Backend, store)
	if pageCache != nil {
		client = backend.NewCachingClient(client, pageCache, cfg.Redis.ResultTTL, store.Scope)
	}

	// 4. Fetch controller with the default query in flight
	ctrl := results.NewController(ctx, client, expiry)
	defer ctrl.Close()

	if _, err := ctrl.SetQueryState(query.Default()); err != nil {
		return fmt.Errorf("initial query: %w", err)
	}

	if cfg.View.RefreshInterval > 0 {
		go results.NewRefresher(ctrl, cfg.View.RefreshInterval).Run(ctx)
		slog.Info("auto refresh enabled", "interval", cfg.View.RefreshInterval)
	}

	// 5. Build router with dependencies
	deps := api.Dependencies{
		Auth:        mw.NewAuth(cfg.View.APIKeyHash),
		RateLimit:   mw.NewRateLimit(counters, cfg.View.RateLimit),
		CORSOrigins: cfg.View.CORSOrigins,

		HealthHandler:       healthHandler(counters),
		GetResultsHandler:   handler.NewGetResultsHandler(ctrl, store, expiry.LoginURL()),
		PatchFiltersHandler: handler.NewPatchFiltersHandler(ctrl),
		SearchHandler:       handler.NewSearchHandler(ctrl),
		ChangePageHandler:   handler.NewChangePageHandler(ctrl),
		ClearFiltersHandler: handler.NewClearFiltersHandler(ctrl),
		RefreshHandler:      handler.NewRefreshHandler(ctrl),
		SetSessionHandler:   handler.NewSetSessionHandler(store),
		UploadHandler:       handler.NewUploadHandler(client, expiry),
	}
	if !deps.Auth.Enabled() {
		slog.Warn("VIEW_API_KEY_HASH is empty, view server accepts unauthenticated requests")
	}

	router := api.NewRouter(deps)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks cache connectivity. The results service is not
// probed; its failures surface through the fetch status.
func healthHandler(c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"cache": "ok",
		}

		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
