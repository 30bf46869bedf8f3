package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/awv/awv/internal/config"
	"github.com/awv/awv/internal/domain/patient"
	"github.com/awv/awv/internal/domain/template"
	"github.com/awv/awv/internal/domain/visit"
	"github.com/awv/awv/internal/platform/auth"
	"github.com/awv/awv/internal/platform/db"
	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/internal/platform/events"
	"github.com/awv/awv/internal/platform/middleware"
	"github.com/awv/awv/migrations"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "awv-server",
		Short:        "Annual Wellness Visit API server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file first")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	withMigrator := func(fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreDriver != config.DriverPostgres {
			return fmt.Errorf("migrations only apply to STORE_DRIVER=%s (current %q)", config.DriverPostgres, cfg.StoreDriver)
		}
		ctx := context.Background()
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, db.NewMigrator(pool, migrations.FS))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatuses(cmd, statuses)
				return nil
			})
		},
	})
	return cmd
}

func printStatuses(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with AUTH_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is required to sign tokens")
			}
			if strings.TrimSpace(subject) == "" {
				return fmt.Errorf("--subject is required")
			}
			tok, err := auth.IssueToken(jwtConfig(cfg), subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "User id placed in the sub claim")
	cmd.Flags().StringSliceVar(&roles, "roles", []string{auth.RolePhysician}, "Roles granted by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns}
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	var key []byte
	if cfg.AuthSigningKey != "" {
		key = []byte(cfg.AuthSigningKey)
	}
	return auth.JWTConfig{Issuer: cfg.AuthIssuer, Audience: cfg.AuthAudience, SigningKey: key}
}

// storage is the gateway the services run on. ping is nil for the memory
// driver.
type storage struct {
	store docstore.Store
	ping  db.Pinger
	close func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	unique := []docstore.UniqueKey{patient.UniqueMRN}

	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := docstore.OpenSQLite(ctx, cfg.SQLitePath, unique...)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return &storage{store: s, ping: s, close: func() { s.Close() }}, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		applied, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, err
		}
		s := docstore.NewPostgresStore(pool, unique...)
		if err := s.EnsureIndexes(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info().Int("migrations_applied", applied).Msg("connected to postgres")
		return &storage{store: s, ping: pool, close: pool.Close}, nil

	default:
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		s := docstore.NewMemoryStore(unique...)
		return &storage{store: s, close: func() {}}, nil
	}
}

// newServer wires the services and routes onto a fresh echo instance. The
// returned func stops background work.
func newServer(cfg *config.Config, st *storage, logger zerolog.Logger) (*echo.Echo, func()) {
	templateSvc := template.NewService(template.NewStoreRepo(st.store), logger)
	templateSvc.SetAutoSaveDelay(cfg.AutoSaveDelay)
	patientSvc := patient.NewService(patient.NewStoreRepo(st.store))
	visitSvc := visit.NewService(visit.NewStoreRepo(st.store), patientSvc, templateSvc, logger)

	hub := events.NewHub(logger)
	templateSvc.SetPublisher(hub)
	visitSvc.SetPublisher(hub)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"store":   cfg.StoreDriver,
		})
	})
	if st.ping != nil {
		e.GET("/health/db", db.HealthHandler(st.ping))
	}

	api := e.Group("/api/v1")
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware(jwtConfig(cfg)))
	} else {
		api.Use(auth.JWTMiddleware(jwtConfig(cfg)))
	}
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	api.Use(middleware.Audit(logger, middleware.NewStoreRecorder(st.store)))

	template.NewHandler(templateSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	visit.NewHandler(visitSvc).RegisterRoutes(api)
	events.NewHandler(hub, cfg.CORSOrigins, auth.UserIDFromContext).RegisterRoutes(api)

	return e, templateSvc.Close
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg)
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: requests without a bearer token run as an admin")
	}

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.close()

	e, stop := newServer(cfg, st, logger)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
