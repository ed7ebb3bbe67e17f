package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Clark-Hu/movie-spaces/internal/auth"
	"github.com/Clark-Hu/movie-spaces/internal/blob"
	"github.com/Clark-Hu/movie-spaces/internal/catalog"
	"github.com/Clark-Hu/movie-spaces/internal/config"
	httpserver "github.com/Clark-Hu/movie-spaces/internal/http"
	"github.com/Clark-Hu/movie-spaces/internal/logging"
	"github.com/Clark-Hu/movie-spaces/internal/metrics"
	"github.com/Clark-Hu/movie-spaces/internal/repository"
	"github.com/Clark-Hu/movie-spaces/internal/service"
	"github.com/Clark-Hu/movie-spaces/internal/store"
)

var (
	migrateOnStart bool
	migrateDown    bool
	rootCmd        = &cobra.Command{
		Use:           "movie-spaces",
		Short:         "Shared movie spaces API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending up migrations before serving")
	rootCmd.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), migrateDown)
		},
	}
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "apply the down migrations instead")
	rootCmd.AddCommand(migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func setup() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logging.Component("store"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return st, nil
}

func runMigrate(ctx context.Context, down bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	dir := store.Up
	if down {
		dir = store.Down
	}
	if err := st.Migrate(ctx, dir); err != nil {
		return err
	}
	logger.Info().Str("direction", string(dir)).Msg("migrations applied")
	return nil
}

func runServe(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if migrateOnStart {
		if err := st.Migrate(ctx, store.Up); err != nil {
			return err
		}
	}

	if err := metrics.RegisterPoolStats(prometheus.DefaultRegisterer, func() metrics.PoolStats { return st.Stats() }); err != nil {
		logger.Warn().Err(err).Msg("register pool metrics")
	}

	blobs, err := blob.Open(blob.Options{
		Dir:           cfg.BlobDir,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxBytes:      cfg.MaxUploadBytes,
		Logger:        logging.Component("blob"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := blobs.Close(); err != nil {
			logger.Warn().Err(err).Msg("close blob store")
		}
	}()

	var lookup catalog.Client = catalog.Disabled{}
	if cfg.CatalogURL != "" {
		client, err := catalog.NewHTTPClient(catalog.Options{
			BaseURL: cfg.CatalogURL,
			APIKey:  cfg.CatalogAPIKey,
			Timeout: time.Duration(cfg.CatalogTimeoutSecs) * time.Second,
			Logger:  logging.Component("catalog"),
		})
		if err != nil {
			return fmt.Errorf("init catalog client: %w", err)
		}
		lookup = client
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	repo := repository.New(st)
	authSvc := auth.NewService(auth.Options{
		Users:      repo.Users,
		Profiles:   repo.Profiles,
		Sessions:   repo.Sessions,
		Resets:     repo.Resets,
		Tokens:     tokens,
		Logger:     logging.Component("auth"),
		SessionTTL: time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		ResetURL:   cfg.PublicBaseURL + "/reset-password",
	})
	services := service.New(service.Deps{
		Spaces:         repo.Spaces,
		Members:        repo.Members,
		Movies:         repo.Movies,
		Ratings:        repo.Ratings,
		Actors:         repo.Actors,
		Invites:        repo.Invites,
		Profiles:       repo.Profiles,
		Blobs:          blobs,
		Catalog:        lookup,
		Logger:         logging.Logger(),
		CatalogTimeout: time.Duration(cfg.CatalogTimeoutSecs) * time.Second,
	})

	server := httpserver.New(cfg, httpserver.Deps{
		Health:      st,
		Auth:        authSvc,
		Spaces:      services.Spaces,
		Movies:      services.Movies,
		Actors:      services.Actors,
		Invitations: services.Invitations,
		Blobs:       blobs,
		Logger:      logging.Component("http"),
	})

	err = server.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
