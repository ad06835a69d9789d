package app

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/confetti-go/confetti/internal/db/controller/user"
	"github.com/confetti-go/confetti/internal/db/models"
)

func init() { //nolint: gochecknoinits
	getCmd.Flags().Uint64Var(&userID, "user", 0, "Resolve the value for this user id")
	setCmd.Flags().Uint64Var(&userID, "user", 0, "Store an override for this user id")
	setCmd.Flags().StringVar(&scopeName, "scope", "", "Scope of the stored value: global or user")

	rootCmd.AddCommand(getCmd, setCmd)
}

var (
	userID    uint64
	scopeName string

	getCmd = &cobra.Command{
		Use:   "get KEY",
		Short: "Print the effective value of a setting as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}

	setCmd = &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Store a value for a setting",
		Long: `Store a value for a setting. The value is given as JSON, for example
  confetti set ui.theme '"dark"' --user 42
  confetti set feature.jobs false

With the memory cache driver the running daemon could not see the change,
so the command refuses to run unless --offline is given.`,
		Args: cobra.ExactArgs(2),
		RunE: runSet,
	}
)

func userFlag(cmd *cobra.Command) *uint64 {
	if !cmd.Flags().Changed("user") {
		return nil
	}

	id := userID

	return &id
}

func runGet(cmd *cobra.Command, args []string) (err error) {
	core, err := openCore()
	if err != nil {
		return err
	}

	defer func() {
		if cerr := core.Close(); err == nil {
			err = cerr
		}
	}()

	// fail loudly on unknown keys instead of printing the fallback
	if _, err = core.Store.GetDefinition(args[0]); err != nil {
		return errors.Wrapf(err, "setting %q", args[0])
	}

	return printJSON(cmd, core.Resolver.Get(args[0], userFlag(cmd), nil))
}

func runSet(cmd *cobra.Command, args []string) (err error) {
	if err = requireSharedCache(); err != nil {
		return err
	}

	var value any
	if err = json.Unmarshal([]byte(args[1]), &value); err != nil {
		return errors.Wrap(err, "value must be valid JSON")
	}

	var scope *models.Scope

	if scopeName != "" {
		sc := models.Scope(scopeName)
		scope = &sc
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

	uid := userFlag(cmd)
	if uid != nil {
		if err = user.Ensure(core.DB, &models.User{ID: *uid, Active: true}); err != nil {
			return err
		}
	}

	row, err := core.Resolver.SetValue(args[0], value, uid, scope)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stored %s value for %s: %s\n", row.Scope, args[0], row.Value.Bytes())

	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode value")
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(raw))

	return nil
}
