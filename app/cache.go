package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() { //nolint: gochecknoinits
	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "Drop every cached entry")

	cacheCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

var (
	purgeAll bool

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the settings cache",
	}

	purgeCmd = &cobra.Command{
		Use:   "purge [KEY...]",
		Short: "Drop the cached values and flags of the given settings",
		Long: `Drop the cached values and flags of the given settings.

Only shared cache drivers (redis, mysql, postgres) can be purged from the
command line. The memory cache lives in the daemon, purge it through
POST /admin/cache/purge instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if purgeAll {
				return cobra.NoArgs(cmd, args)
			}

			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: runPurge,
	}
)

func runPurge(cmd *cobra.Command, args []string) (err error) {
	if err = requireSharedCache(); err != nil {
		return err
	}

	core, err := openCore()
	if err != nil {
		return err
	}

	defer func() {
		if cerr := core.Close(); err == nil {
			err = cerr
		}
	}()

	if purgeAll {
		if err = core.Invalidator.Reset(); err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")

		return nil
	}

	n, err := core.Invalidator.PurgeDefinitions(core.Store, args...)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "purged %d cache entries\n", n)

	return nil
}
