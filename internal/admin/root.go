// Package admin implements the administrative CLI. It operates directly on
// the database file; the HTTP API deliberately has no account-management
// endpoints, so activating and deactivating accounts happens here.
package admin

import (
	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/biobank/internal/repository/sqlite"
)

// RootCommand builds the biobank-admin command tree.
func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "biobank-admin",
		Short:        "Administrative tool for the biobank API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	cmd.PersistentFlags().String("db", "data/biobank.db", "path to the SQLite database")

	cmd.AddCommand(userCommand())

	return cmd
}

// openStore opens the database named by the --db flag. The caller closes it.
func openStore(cmd *cobra.Command) (*sqliteRepo.DB, error) {
	dbPath, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	return sqliteRepo.New(dbPath)
}
