package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agenthive/auth-service/internal/app"
	"github.com/agenthive/auth-service/internal/config"
	"github.com/agenthive/auth-service/internal/observability"
	"github.com/agenthive/auth-service/internal/repository"
	"github.com/agenthive/auth-service/internal/tools/authcheck"
	"github.com/agenthive/auth-service/internal/tools/common"
)

func main() {
	root := &cobra.Command{
		Use:           "auth-service",
		Short:         "Authentication and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newSessionsCommand())
	root.AddCommand(authcheck.NewRootCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, runtime, err := bootstrap(ctx, envFile)
			if err != nil {
				return err
			}

			a, err := app.Build(ctx, cfg, logger, runtime)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to the env file")
	return cmd
}

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance",
	}
	cmd.AddCommand(newSessionsSweepCommand())
	cmd.AddCommand(newSessionsListCommand())
	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var envFile, principal string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List session rows for a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			principalID, err := uuid.Parse(principal)
			if err != nil {
				return fmt.Errorf("parse principal id: %w", err)
			}

			cfg, _, runtime, err := bootstrap(ctx, envFile)
			if err != nil {
				return err
			}
			defer func() {
				if runtime != nil {
					_ = runtime.Shutdown(ctx)
				}
			}()

			db, err := app.OpenDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() {
				if sqlDB, dbErr := db.DB(); dbErr == nil {
					_ = sqlDB.Close()
				}
			}()

			repo := repository.NewSessionRepository(db).(*repository.GormSessionRepository)
			sessions, info, err := repo.ListPageByPrincipalID(ctx, principalID, repository.PageRequest{Page: page, PageSize: pageSize})
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			fmt.Printf("page %d/%d, %d total\n", info.Page, info.TotalPages, info.Total)
			for _, s := range sessions {
				fmt.Printf("%s  created=%s  expires=%s  ip=%s  ua=%q\n",
					s.ID, s.CreatedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339), s.ClientIP, s.UserAgent)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to the env file")
	cmd.Flags().StringVar(&principal, "principal", "", "principal id (required)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "rows per page")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}

func newSessionsSweepCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired session rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, runtime, err := bootstrap(ctx, envFile)
			if err != nil {
				return err
			}
			defer func() {
				if runtime != nil {
					_ = runtime.Shutdown(ctx)
				}
			}()

			db, err := app.OpenDatabase(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() {
				if sqlDB, dbErr := db.DB(); dbErr == nil {
					_ = sqlDB.Close()
				}
			}()

			removed, err := repository.NewSessionRepository(db).DeleteExpired(ctx)
			if err != nil {
				return fmt.Errorf("sweep sessions: %w", err)
			}
			logger.Info("expired sessions removed", "count", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to the env file")
	return cmd
}

func bootstrap(ctx context.Context, envFile string) (*config.Config, *slog.Logger, *observability.Runtime, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	runtime, err := observability.InitRuntime(ctx, cfg, logger, loggerProvider)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, runtime, nil
}
