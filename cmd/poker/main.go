package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthiasburger/planningpoker-go/internal/app"
	"github.com/matthiasburger/planningpoker-go/internal/config"
	"github.com/matthiasburger/planningpoker-go/internal/log"
)

var (
	flagConfig string
	overrides  config.Config
)

func main() {
	root := &cobra.Command{
		Use:          "poker",
		Short:        "Planning poker client",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "path to config file")
	pf.StringVar(&overrides.ServerURL, "server", "", "hub WebSocket URL")
	pf.StringVar(&overrides.StatePath, "state", "", "path to the client state database")
	pf.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	var name string

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and join it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				roomID, err := a.Session.CreateRoom(ctx, name)
				if err != nil {
					return err
				}
				fmt.Printf("room created: %s\n", roomID)
				return repl(ctx, a.Session)
			})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "display name")

	joinCmd := &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join an existing room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Session.JoinRoom(ctx, args[0], name); err != nil {
					return err
				}
				return repl(ctx, a.Session)
			})
		},
	}
	joinCmd.Flags().StringVar(&name, "name", "", "display name")

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Rejoin the last room from persisted state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				resumed, err := a.Session.Resume(ctx)
				if err != nil {
					return err
				}
				if !resumed {
					return fmt.Errorf("no saved session to resume")
				}
				return repl(ctx, a.Session)
			})
		},
	}

	root.AddCommand(createCmd, joinCmd, resumeCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withApp loads config, builds the client, connects and runs fn.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	bootstrapLog := log.New("info")
	cfg, _, err := config.Load(bootstrapLog, flagConfig)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(overrides)

	logger := log.New(cfg.LogLevel)
	a := app.New(cfg, logger)
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return fn(ctx, a)
}
