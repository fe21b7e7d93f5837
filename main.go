package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ixugo/goddd/pkg/system"
	"github.com/ridecare/ridecare/internal/app"
	"github.com/ridecare/ridecare/internal/conf"
	"github.com/spf13/cobra"
)

// Build information - set via ldflags
var (
	buildVersion = "0.0.1"
	gitBranch    = "dev"
	gitHash      = "debug"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "ridecare",
	Short: "RideCare recording review service",
	Long: `RideCare synchronises trip event recordings with their vehicle telemetry
and lets operators label incidents frame by frame.

  ridecare serve                  # HTTP service with review sessions
  ridecare review <recording-id>  # review a recording in the terminal`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP service",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		bc, err := loadConfig()
		if err != nil {
			return err
		}
		return app.Run(bc)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <recording-id>",
	Short: "Review a recording in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		bc, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.RunReview(ctx, bc, args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", filepath.Join(system.Getwd(), "configs", "config.toml"), "config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging and request bodies")
	rootCmd.AddCommand(serveCmd, reviewCmd)
	rootCmd.Version = buildVersion
}

func loadConfig() (*conf.Bootstrap, error) {
	bc, err := conf.SetupConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	bc.Debug = debug
	bc.BuildVersion = buildVersion
	return bc, nil
}

func main() {
	expvar.NewString("version").Set(buildVersion)
	expvar.NewString("git_branch").Set(gitBranch)
	expvar.NewString("git_hash").Set(gitHash)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
