// Package main kuitter: консольная оболочка клиента. Держит сессию и локальное
// состояние устройства и после каждого действия показывает, на какой экран ведёт гейт.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appclient "github.com/magabrotheeeer/kuitter-gate/internal/app/client"
	"github.com/magabrotheeeer/kuitter-gate/internal/config"
	"github.com/magabrotheeeer/kuitter-gate/internal/models"
	"github.com/magabrotheeeer/kuitter-gate/internal/navigator"
)

var (
	configPath string
	verbose    bool

	app *appclient.App
)

var rootCmd = &cobra.Command{
	Use:           "kuitter",
	Short:         "Headless Kuitter client",
	Long:          "kuitter signs in to the Kuitter backend, keeps the trial timer on this device and prints the screen the gate routes to after every action.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if configPath == "" {
			configPath = os.Getenv("CONFIG_PATH")
		}
		if configPath == "" {
			return fmt.Errorf("config path is not set: use --config or CONFIG_PATH")
		}
		cfg, err := config.LoadClient(configPath)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		app, err = appclient.New(cmd.Context(), cfg, logger, printSink(cmd.OutOrStdout()))
		return err
	},
}

func printSink(w io.Writer) navigator.Sink {
	return navigator.SinkFunc(func(r models.Route) {
		fmt.Fprintf(w, "-> %s\n", r)
	})
}

func printDecision(w io.Writer, d models.Decision) {
	fmt.Fprintf(w, "state: %s\nroute: %s\n", d.State, d.Route)
	if d.Reason != "" {
		fmt.Fprintf(w, "reason: %s\n", d.Reason)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the client config (default $CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		loginCmd,
		logoutCmd,
		routeCmd,
		statusCmd,
		activateCmd,
		profileCmd,
		usernameCmd,
		onboardingCmd,
		goalsCmd,
		themeCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if app != nil {
		if closeErr := app.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
