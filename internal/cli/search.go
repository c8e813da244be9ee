package cli

import (
	"github.com/spf13/cobra"

	"crossdep/internal/app"
	"crossdep/internal/repo"
)

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search packages across ecosystems (not implemented)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := app.NewService(&repo.Indices{})
			return service.Search(cmd.Context(), args[0])
		},
	}
	return cmd
}
