package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicpulse/clinicpulse/internal/config"
	"github.com/clinicpulse/clinicpulse/internal/domain/dataset"
	"github.com/clinicpulse/clinicpulse/internal/domain/features"
	"github.com/clinicpulse/clinicpulse/internal/domain/insights"
	"github.com/clinicpulse/clinicpulse/internal/domain/prediction"
	"github.com/clinicpulse/clinicpulse/internal/domain/record"
	"github.com/clinicpulse/clinicpulse/internal/domain/simulation"
	"github.com/clinicpulse/clinicpulse/internal/domain/strategy"
	"github.com/clinicpulse/clinicpulse/internal/platform/db"
	"github.com/clinicpulse/clinicpulse/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicpulse-server",
		Short: "Clinic no-show prediction and overbooking optimization API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(optimizeCmd())
	rootCmd.AddCommand(featuresCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// simulateCmd runs one simulation from the command line, for quick what-if
// checks without a server.
func simulateCmd() *cobra.Command {
	var params simulation.Parameters
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a single clinic-day simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := simulation.Run(params, nil)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().IntVar(&params.Doctors, "doctors", 3, "Number of doctors")
	cmd.Flags().IntVar(&params.SlotsPerDay, "slots", 20, "Appointment slots per day")
	cmd.Flags().Float64Var(&params.OverbookingPct, "overbooking", 10, "Overbooking percentage")
	cmd.Flags().Float64Var(&params.AvgAppointmentMin, "appointment-minutes", 30, "Average appointment length in minutes")
	cmd.Flags().Float64Var(&params.ClinicHours, "hours", 8, "Clinic operating hours")
	cmd.Flags().Float64Var(&params.PopulationNoShowRate, "no-show-rate", 0.2, "Population no-show probability")
	cmd.Flags().Int64Var(&params.Seed, "seed", 1, "Random seed")
	return cmd
}

func optimizeCmd() *cobra.Command {
	var (
		params  simulation.Parameters
		maxPct  int
		stepPct int
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Sweep overbooking percentages and recommend one",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := strategy.Sweep(params, maxPct, stepPct, strategy.DefaultWeights, nil)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
	cmd.Flags().IntVar(&params.Doctors, "doctors", 3, "Number of doctors")
	cmd.Flags().IntVar(&params.SlotsPerDay, "slots", 20, "Appointment slots per day")
	cmd.Flags().Float64Var(&params.AvgAppointmentMin, "appointment-minutes", 30, "Average appointment length in minutes")
	cmd.Flags().Float64Var(&params.ClinicHours, "hours", 8, "Clinic operating hours")
	cmd.Flags().Float64Var(&params.PopulationNoShowRate, "no-show-rate", 0.2, "Population no-show probability")
	cmd.Flags().Int64Var(&params.Seed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&maxPct, "max", 30, "Highest overbooking percentage to evaluate")
	cmd.Flags().IntVar(&stepPct, "step", 5, "Sweep step")
	return cmd
}

// featuresCmd derives feature vectors from an appointment CSV and prints
// them, for inspecting what the model actually sees for a given file.
func featuresCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Derive feature vectors from an appointment CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := record.ReadCSV(f, 0)
			if err != nil {
				return err
			}
			vectors, err := features.Derive(records)
			if err != nil {
				return err
			}
			return printJSON(vectors)
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "Path to the appointment CSV")
	cmd.MarkFlagRequired("file")
	return cmd
}

// migrateCmd applies pending database migrations, or lists their status
// with --status. It requires DATABASE_URL.
func migrateCmd() *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.UsesPostgres() {
				return fmt.Errorf("DATABASE_URL is required for migrations")
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, cfg.MigrationsDir)
			if statusOnly {
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return err
				}
				return printJSON(statuses)
			}

			n, err := migrator.Up(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "applied %d migration(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "List migrations without applying them")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Dataset store: Postgres when configured, in-memory otherwise.
	ctx := context.Background()
	repo := dataset.NewMemoryRepo()
	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		n, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
		if n > 0 {
			logger.Info().Int("applied", n).Msg("migrations applied")
		}

		repo = dataset.NewPGRepo(pool)
		logger.Info().Msg("using postgres dataset store")
	} else {
		logger.Info().Msg("using in-memory dataset store")
	}

	datasetSvc := dataset.NewServiceWithLimit(repo, cfg.UploadRowLimit)
	model := prediction.NewLogisticModel(cfg.ModelPath)
	predictor := prediction.NewPredictor(model)
	simDefaults := cfg.SimulationDefaults()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSec) * time.Second))
	e.Use(middleware.BodyLimit(cfg.BodyLimitDefault, cfg.BodyLimitUpload))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"model":   model.Version(),
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// -- Register Domain Handlers --
	api := e.Group("/api")
	dataset.NewHandler(datasetSvc).RegisterRoutes(api)
	prediction.NewHandler(predictor, datasetSvc).RegisterRoutes(api)
	simulation.NewHandler(datasetSvc, predictor).RegisterRoutes(api)
	strategy.NewHandler(simDefaults, cfg.SweepDefaults(), datasetSvc, predictor).RegisterRoutes(api)
	insights.NewHandler(datasetSvc, predictor, simDefaults).RegisterRoutes(api)

	// Start with graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped cleanly")
	return nil
}
