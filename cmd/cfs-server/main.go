package main

import (
	"context"
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

	"github.com/MatanKJaffe/CFSCalculator/internal/config"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/dictionary"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/facts"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/rules"
	"github.com/MatanKJaffe/CFSCalculator/internal/domain/scoring"
	"github.com/MatanKJaffe/CFSCalculator/internal/platform/auth"
	"github.com/MatanKJaffe/CFSCalculator/internal/platform/db"
	"github.com/MatanKJaffe/CFSCalculator/internal/platform/middleware"
	"github.com/MatanKJaffe/CFSCalculator/internal/platform/tabular"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cfs-server",
		Short: "Clinical Frailty Scale scoring service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rulesCmd())

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
		Short: "Start the CFS scoring API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// scoreCmd runs a one-shot batch over exported assessment and diagnosis
// files without requiring the API server or, unless --persist is set, a
// database.
func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score patients from assessment and diagnosis exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			assessmentsPath, _ := cmd.Flags().GetString("assessments")
			diagnosesPath, _ := cmd.Flags().GetString("diagnoses")
			outPath, _ := cmd.Flags().GetString("out")
			format, _ := cmd.Flags().GetString("format")
			persist, _ := cmd.Flags().GetBool("persist")

			if assessmentsPath == "" && diagnosesPath == "" {
				return fmt.Errorf("at least one of --assessments or --diagnoses is required")
			}
			if format != "csv" && format != "json" {
				return fmt.Errorf("unsupported format %q (want csv or json)", format)
			}

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			dict, err := dictionary.Load(cfg.DictionaryPath)
			if err != nil {
				return err
			}
			ruleSet, err := rules.Load(cfg.RulesPath)
			if err != nil {
				return err
			}

			obs, err := readAssessmentsFile(assessmentsPath)
			if err != nil {
				return err
			}
			diags, err := readDiagnosesFile(diagnosesPath)
			if err != nil {
				return err
			}
			records := tabular.MergeRecords(obs, diags)
			if len(records) == 0 {
				return fmt.Errorf("no patient rows found in input files")
			}

			ctx := context.Background()

			var repo scoring.ResultRepository
			if persist {
				if err := cfg.RequireDatabase(); err != nil {
					return err
				}
				pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
				if err != nil {
					return err
				}
				defer pool.Close()
				repo = scoring.NewResultRepoPG(pool)
			}

			svc := scoring.NewService(dict, ruleSet, repo, cfg.ScoreWorkers, logger)
			results, summary := svc.ScoreBatch(ctx, records)

			if persist {
				if err := svc.SaveBatch(ctx, results); err != nil {
					return fmt.Errorf("persist results: %w", err)
				}
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if format == "csv" {
				if err := tabular.WriteResultsCSV(out, results); err != nil {
					return err
				}
			} else {
				if err := tabular.WriteResultsJSON(out, results, summary); err != nil {
					return err
				}
			}

			logger.Info().
				Str("run_id", summary.RunID.String()).
				Int("patients", summary.Patients).
				Int("defaulted", summary.Defaulted).
				Msg("batch scored")
			return nil
		},
	}

	cmd.Flags().String("assessments", "", "Path to assessment export CSV")
	cmd.Flags().String("diagnoses", "", "Path to diagnosis export CSV")
	cmd.Flags().String("out", "", "Output file (default stdout)")
	cmd.Flags().String("format", "csv", "Output format: csv or json")
	cmd.Flags().Bool("persist", false, "Also write results to the database")
	return cmd
}

func readAssessmentsFile(path string) (map[string][]facts.Observation, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assessments file: %w", err)
	}
	defer f.Close()
	return tabular.ReadAssessments(f)
}

func readDiagnosesFile(path string) (map[string][]facts.Diagnosis, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open diagnoses file: %w", err)
	}
	defer f.Close()
	return tabular.ReadDiagnoses(f)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// rulesCmd validates configuration files without touching the database or
// scoring anything.
func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate scoring configuration",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the rule set and dictionary files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			dict, err := dictionary.Load(cfg.DictionaryPath)
			if err != nil {
				return fmt.Errorf("dictionary: %w", err)
			}
			ruleSet, err := rules.Load(cfg.RulesPath)
			if err != nil {
				return fmt.Errorf("rules: %w", err)
			}

			fmt.Printf("Dictionary OK: %d mappings, %d condition categories\n",
				dict.MappingCount(), len(dict.ConditionFacts()))
			fmt.Printf("Rules OK: %d rules\n", ruleSet.Len())
			for _, r := range ruleSet.Rules() {
				fmt.Printf("  %3d  %-35s score %d\n", r.Priority, r.Name, r.Score)
			}
			return nil
		},
	}
	cmd.AddCommand(validateCmd)
	return cmd
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Scoring configuration is fatal at startup: a server with a bad rule
	// set must not score anyone.
	dict, err := dictionary.Load(cfg.DictionaryPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load dictionary")
	}
	ruleSet, err := rules.Load(cfg.RulesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load rules")
	}
	logger.Info().
		Int("mappings", dict.MappingCount()).
		Int("rules", ruleSet.Len()).
		Msg("scoring configuration loaded")

	ctx := context.Background()

	// Database is optional: without it the server scores but does not
	// persist or list results.
	var repo scoring.ResultRepository
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		repo = scoring.NewResultRepoPG(pool)
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("no DATABASE_URL configured; results will not be persisted")
	}

	svc := scoring.NewService(dict, ruleSet, repo, cfg.ScoreWorkers, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	api := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	scoring.NewHandler(svc).RegisterRoutes(api)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"version":    "0.1.0",
			"rules":      ruleSet.Len(),
			"mappings":   dict.MappingCount(),
			"persistent": repo != nil,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
