package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/confetti-go/confetti/internal/seed"
)

func init() { //nolint: gochecknoinits
	for _, cmd := range []*cobra.Command{seedCmd, syncCmd} {
		cmd.Flags().BoolVar(&categoriesOnly, "categories-only", false, "Only process setting categories")
		cmd.Flags().BoolVar(&definitionsOnly, "definitions-only", false, "Only process setting definitions")
		cmd.MarkFlagsMutuallyExclusive("categories-only", "definitions-only")
	}

	syncCmd.Flags().BoolVar(&syncOpts.Update, "update", false,
		"Update title, description, enabled, editable and category of existing definitions")
	syncCmd.Flags().BoolVar(&syncOpts.UpdateDefaults, "update-defaults", false,
		"Update default, choices and type of existing definitions")
	syncCmd.Flags().BoolVar(&syncOpts.DryRun, "dry-run", false, "Report changes without writing them")

	rootCmd.AddCommand(seedCmd, syncCmd)
}

var (
	categoriesOnly  bool
	definitionsOnly bool
	syncOpts        seed.Options

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create the configured categories and definitions that are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, seed.Options{})
		},
	}

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Create and optionally update the configured categories and definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, syncOpts)
		},
	}
)

func runSeed(cmd *cobra.Command, opts seed.Options) (err error) {
	// creating missing items only touches the frontend list, which expires on its own
	if (opts.Update || opts.UpdateDefaults) && !opts.DryRun {
		if err = requireSharedCache(); err != nil {
			return err
		}
	}

	switch {
	case categoriesOnly:
		opts.Only = seed.OnlyCategories
	case definitionsOnly:
		opts.Only = seed.OnlyDefinitions
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

	stats, err := seed.Seed(core.Store, cfg.Confetti, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if opts.DryRun {
		_, _ = fmt.Fprintln(out, "dry run, nothing was written")
	}

	_, _ = fmt.Fprintln(out, stats.String())

	for _, e := range stats.Errors {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
	}

	return nil
}
