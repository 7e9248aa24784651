package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bincms/bincms/internal/api"
	"github.com/bincms/bincms/internal/config"
	"github.com/bincms/bincms/internal/db"
	"github.com/bincms/bincms/internal/logger"
	"github.com/bincms/bincms/internal/migration"
	"github.com/bincms/bincms/internal/seed"
	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "bincms-server",
		Short: "CMS backend with role-based access control",
	}
	root.AddCommand(serveCmd(), createAdminCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}

func createAdminCmd() *cobra.Command {
	var loginID, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Provision the admin account without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if loginID == "" {
				loginID = cfg.Auth.AdminLoginID
			}
			if password == "" {
				password = cfg.Auth.AdminPassword
			}

			logger.Init(cfg.Log.Format, cfg.Log.Level)

			database, err := db.New(cfg.Database)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}

			// Same ordering as serve: legacy migration, then schema sync.
			engine := migration.New(database, slog.Default(), loginID)
			status := engine.Run()
			slog.Info("Role migration finished", "status", status)

			if err := db.Migrate(database); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			if err := seed.EnsureAdmin(database, loginID, password); err != nil {
				return fmt.Errorf("provision admin account: %w", err)
			}
			slog.Info("Admin account provisioned", "login_id", loginID)
			return nil
		},
	}

	cmd.Flags().StringVar(&loginID, "login-id", "", "Admin login id (defaults to auth.admin_login_id)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (defaults to auth.admin_password)")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger.Init(cfg.Log.Format, cfg.Log.Level)
			slog.Info("Starting bincms server", "version", Version, "mode", cfg.Server.Mode)

			database, err := db.New(cfg.Database)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			slog.Info("Database initialized", "driver", cfg.Database.Driver)

			// The legacy role-column migration runs first, before the schema
			// sync and before anything else touches the database. It never
			// aborts startup; the outcome is surfaced via /health.
			engine := migration.New(database, slog.Default(), cfg.Auth.AdminLoginID)
			status := engine.Run()
			slog.Info("Role migration finished", "status", status)

			if err := db.Migrate(database); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			slog.Info("Database migrations completed")

			if err := seed.Run(database, cfg.Auth.AdminLoginID, cfg.Auth.AdminPassword); err != nil {
				return fmt.Errorf("seed baseline data: %w", err)
			}
			slog.Info("Baseline data seeded")

			router := api.NewRouter(cfg, database, engine)
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			srv := &http.Server{
				Addr:    addr,
				Handler: router,
			}

			go func() {
				slog.Info("Server listening", "address", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("Server failed", "error", err)
					os.Exit(1)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			slog.Info("Shutting down...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			slog.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to run the server on (overrides config)")
	return cmd
}
