package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jupyterhealth/exchange/internal/config"
	"github.com/jupyterhealth/exchange/internal/domain/coding"
	"github.com/jupyterhealth/exchange/internal/domain/identity"
	"github.com/jupyterhealth/exchange/internal/domain/observation"
	"github.com/jupyterhealth/exchange/internal/domain/organization"
	"github.com/jupyterhealth/exchange/internal/domain/patient"
	"github.com/jupyterhealth/exchange/internal/domain/study"
	"github.com/jupyterhealth/exchange/internal/platform/auth"
	"github.com/jupyterhealth/exchange/internal/platform/db"
	"github.com/jupyterhealth/exchange/internal/platform/middleware"
	"github.com/jupyterhealth/exchange/internal/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jhe-server",
		Short: "JupyterHealth Exchange API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the exchange API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, cfg.Migrations).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo organizations, users, studies and observations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			return seed.Run(ctx, pool, newLogger())
		},
	}
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repositories and services
	identityRepo := identity.NewRepoPG(pool)
	identitySvc := identity.NewService(identityRepo)

	codingRepo := coding.NewRepoPG(pool)

	orgRepo := organization.NewRepoPG(pool)
	orgSvc := organization.NewService(orgRepo)

	studyRepo := study.NewRepoPG(pool)
	studySvc := study.NewService(studyRepo, codingRepo)

	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, identityRepo)

	obsRepo := observation.NewRepoPG(pool)
	obsSvc := observation.NewService(obsRepo, studySvc, patientSvc, codingRepo)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authn := auth.Middleware(cfg.JWTSecret, cfg.JWTIssuer, identitySvc)
	apiV1 := e.Group("/api/v1", authn)
	fhirR5 := e.Group("/fhir/r5", authn)

	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	orgHandler := organization.NewHandler(orgSvc)
	orgHandler.RegisterRoutes(apiV1)
	study.NewHandler(studySvc).RegisterRoutes(apiV1)

	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)
	patientHandler.RegisterFHIRRoutes(fhirR5)

	obsHandler := observation.NewHandler(obsSvc)
	obsHandler.RegisterRoutes(apiV1)
	obsHandler.RegisterFHIRRoutes(fhirR5)

	// Serve with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
