package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/hospital-flow/internal/api/http"
	"github.com/i474232898/hospital-flow/internal/benchmark"
	"github.com/i474232898/hospital-flow/internal/benchmark/sources"
	"github.com/i474232898/hospital-flow/internal/config"
	"github.com/i474232898/hospital-flow/internal/ops"
	"github.com/i474232898/hospital-flow/internal/scheduler"
	"github.com/i474232898/hospital-flow/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hospital-flow",
		Short:         "NHS England provider benchmarking and hospital flow API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(periodsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg     *config.AppConfig
	logger  zerolog.Logger
	service *benchmark.Service
	close   func()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := cfg.NewLogger(nil)

	cache, err := store.NewDiskCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for publication downloads.
	httpCfg := sources.DefaultHTTPClientConfig(&http.Client{Timeout: cfg.HTTPTimeout})
	httpCfg.UserAgent = cfg.UserAgent
	httpCfg.Backoff.MaxRetries = cfg.DownloadRetries
	srcs := sources.All(cache, sources.WithHTTPConfig(httpCfg), sources.WithLogger(log))

	var (
		obsStore benchmark.ObservationStore
		closeFn  = func() {}
	)
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		pg, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		obsStore = pg
		closeFn = pool.Close
		log.Info().Msg("observation history stored in postgres")
	} else {
		obsStore = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		service: benchmark.NewService(obsStore, srcs, log),
		close:   closeFn,
	}, nil
}

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the refresh scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			return runServer(a)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func runServer(a *app) error {
	log := a.logger

	opsData, err := ops.Load(a.cfg.OpsDataDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", a.cfg.OpsDataDir).Msg("operational data unavailable; ops endpoints disabled")
	}

	// Scheduler that periodically refreshes observation history.
	sched := scheduler.New(a.cfg.PeerSet(), a.cfg.RefreshInterval, a.service, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	server := fiber.New(fiber.Config{
		AppName:               "hospital-flow",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Cold-cache requests wait on publication downloads.
		WriteTimeout: a.cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	server.Use(requestid.New())
	server.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	server.Use(recover.New())

	server.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "hospital-flow",
		})
	})

	httpapi.RegisterRoutes(server, a.service, httpapi.Options{
		DefaultPeers:   a.cfg.PeerSet(),
		Ops:            opsData,
		RequestTimeout: a.cfg.HTTPTimeout,
	})

	go func() {
		log.Info().Str("port", a.cfg.Port).Msg("starting server")
		if err := server.Listen(":" + a.cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
