package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/taskflow/internal/auth"
	"github.com/existflow/taskflow/internal/config"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/mail"
	"github.com/existflow/taskflow/internal/service"
	"github.com/existflow/taskflow/server"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	addrFlag   string
	dbDriver   string
	dbDSN      string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "taskflow-server",
	Short:        "TaskFlow API server",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Migrate the database and ensure the admin account, then exit",
	RunE:  runBootstrap,
}

var configInitCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to server.yaml (default ~/.taskflow/server.yaml)")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "Listen address, overrides server.addr and PORT")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "Database DSN or SQLite path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(configInitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies flags over the file and environment settings
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if addrFlag != "" {
		cfg.Server.Addr = addrFlag
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbDSN != "" {
		cfg.Database.DSN = dbDSN
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		FilePath:   cfg.Log.File,
		MaxSize:    10 * 1024 * 1024, // 10MB
		MaxAge:     7,
		MaxBackups: 5,
		Console:    cfg.Log.Console,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

type app struct {
	cfg      *config.Config
	conn     *db.DB
	store    *db.Store
	mailer   *mail.Async
	services *service.Services
}

// setup opens the database, wires the services and ensures the admin account
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("Database ready", logger.F("driver", cfg.Database.Driver))

	store := db.NewStore(conn)
	mailer := mail.NewAsync(mail.New(cfg.Email))
	services := service.New(service.Deps{
		Store:  store,
		Hasher: auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens: auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Mailer: mailer,
		Verification: service.VerificationConfig{
			Enabled:    cfg.Auth.EmailVerification,
			AppBaseURL: cfg.Auth.AppBaseURL,
		},
	})

	if _, err := services.Identity.BootstrapAdmin(ctx, service.AdminAccount{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}); err != nil {
		mailer.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	return &app{cfg: cfg, conn: conn, store: store, mailer: mailer, services: services}, nil
}

func (a *app) close() {
	a.mailer.Close()
	if err := a.conn.Close(); err != nil {
		logger.Error("Failed to close database", logger.Err(err))
	}
	_ = logger.Close()
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	fmt.Fprintf(cmd.OutOrStdout(), "Database migrated, admin %s ensured\n", a.cfg.Admin.Email)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	srv := server.New(a.cfg.Server, a.store, a.services)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(a.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", logger.Err(err))
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
