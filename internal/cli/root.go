// Package cli holds the zenpulse command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zenpulse/internal/api"
	"zenpulse/internal/app"
	"zenpulse/internal/config"
	"zenpulse/internal/database"
	"zenpulse/internal/logger"
	"zenpulse/internal/services"
)

const Version = "0.1.0"

// NewRootCmd builds the command tree. Running the root command without a
// subcommand starts the application.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zenpulse",
		Short: "Mood tracking companion",
		Long: `ZenPulse keeps a daily mood journal on the ZenPulse backend, chats with
the companion AI and adjusts today's mood from the conversation.

It runs a Telegram bot and a local JSON API, or prints the dashboard once.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Start the bot, local API and scheduled jobs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApp()
			},
		},
		newDashboardCmd(),
		newClearSessionCmd(),
		newRegisterCmd(),
		newLoginCmd(),
		newWhoamiCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "zenpulse version %s\n", Version)
			},
		},
	)
	return cmd
}

func runApp() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Log.FilePath, cfg.IsProduction())

	application, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	if err := application.Start(); err != nil {
		return fmt.Errorf("start application: %w", err)
	}

	waitForShutdown()
	log.Info("👋 shutting down")
	return application.Stop()
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

func newDashboardCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Fetch entries once and print the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := zap.NewNop()
			if verbose {
				log = logger.New(cfg.Log.FilePath, cfg.IsProduction())
			}

			return withServices(cmd.Context(), cfg, log, func(sm *services.ServiceManager, loc *time.Location) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
				defer cancel()

				overview, err := sm.Overview(ctx)
				if err != nil && !api.IsNetworkError(err) {
					return err
				}
				renderOverview(cmd.OutOrStdout(), overview, loc)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log to the console while fetching")
	return cmd
}

func newClearSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-session",
		Short: "Delete the stored chat session and sentiment tally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			return withServices(cmd.Context(), cfg, zap.NewNop(), func(sm *services.ServiceManager, _ *time.Location) error {
				count := len(sm.Session.Messages())
				sm.ClearSession()
				fmt.Fprintf(cmd.OutOrStdout(), "🧹 cleared %d messages for tab %q\n", count, cfg.Session.TabID)
				return nil
			})
		},
	}
}

func newRegisterCmd() *cobra.Command {
	var name, email, password, confirm string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			return withServices(cmd.Context(), cfg, zap.NewNop(), func(sm *services.ServiceManager, _ *time.Location) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
				defer cancel()

				if err := sm.Register(ctx, name, email, password, confirm); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ registered %s, now run: zenpulse login --email %s\n", email, email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password again")
	return cmd
}

// newLoginCmd prints the token instead of storing it; export it as API_TOKEN.
func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			return withServices(cmd.Context(), cfg, zap.NewNop(), func(sm *services.ServiceManager, _ *time.Location) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
				defer cancel()

				user, err := sm.Login(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "👋 signed in as %s\nAPI_TOKEN=%s\n", user.Email, sm.Auth.Token())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account API_TOKEN belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			return withServices(cmd.Context(), cfg, zap.NewNop(), func(sm *services.ServiceManager, _ *time.Location) error {
				if !sm.Auth.SignedIn() {
					return errors.New("API_TOKEN is not set")
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
				defer cancel()

				user, err := sm.CurrentUser(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
				if exp, ok := sm.Auth.TokenExpiry(); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "token expires %s\n", exp.In(time.UTC).Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

// withServices opens the session store and backend client for a one-shot
// command and closes them afterwards.
func withServices(ctx context.Context, cfg *config.Config, log *zap.Logger, fn func(*services.ServiceManager, *time.Location) error) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Session.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, loc, log)
	if cfg.API.Token != "" {
		client.SetToken(cfg.API.Token)
	}

	sm := services.NewServiceManager(ctx, client, database.NewStorage(db, cfg.Session.TabID), nil, loc, log)
	return fn(sm, loc)
}
