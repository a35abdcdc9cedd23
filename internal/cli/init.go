// Init command creates the data directory and backend tables.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and backend tables",
		Long: `Initializes the configured backend. For the sqlite and memory backends
this creates the data directory; for sqlite and postgres it also creates
the users and products tables. Safe to run more than once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			_, closer, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()
			return printResult(cmd.OutOrStdout(), a.flags.output, map[string]string{
				"backend":  a.cfg.Backend,
				"data_dir": a.cfg.DataDir,
			})
		},
	}
}
