// Package app implements the main application commands.
package app

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/daemon"
	"github.com/confetti-go/confetti/internal/logger"
)

// ErrPrivateCache is returned by commands that change settings or the cache
// while the configured cache lives inside the daemon process.
var ErrPrivateCache = errors.New(
	"the memory cache is private to the running daemon: use the HTTP API or a shared cache driver, " +
		"or pass --offline when the daemon is stopped")

var (
	configPath string // directory holding main.toml
	offline    bool   // the daemon is not running

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "confetti",
		Short: "confetti serves runtime settings and feature flags",
		Long: `confetti stores typed runtime settings and feature flags,
resolves them per user with a cache in front and serves them over HTTP.`,
		Args:         cobra.OnlyValidArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error

			if cfg, err = config.ReadConfig(configPath); err != nil {
				return err
			}

			return logger.Init(cfg.Log)
		},
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath,
		"Directory containing main.toml")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false,
		"Assert that no daemon is running, allowing writes with the memory cache")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// requireSharedCache refuses to change data a running daemon may hold in
// its own memory cache, since the change could not be invalidated there.
func requireSharedCache() error {
	if offline || cfg.Cache.Driver != config.CacheMemory {
		return nil
	}

	return ErrPrivateCache
}

// openCore opens the settings stack for one-shot commands. Metrics go to a
// private registry since nothing scrapes them.
func openCore() (*daemon.Core, error) {
	return daemon.Open(&cfg, prometheus.NewRegistry())
}
