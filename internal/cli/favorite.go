package cli

import (
	"fmt"

	"github.com/glorpus-work/apkstash/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewFavoriteCmd creates the favorite command.
func NewFavoriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorite PACKAGE",
		Short: "Toggle the favorite flag of an app",
		Long:  "Pin an app to the top of the app list, or unpin it when it is already a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			orch := &orchestrator.Orchestrator{Settings: store}
			favorite, err := orch.ToggleFavorite(args[0])
			if err != nil {
				return fmt.Errorf("failed to update favorites: %w", err)
			}
			state := "removed from"
			if favorite {
				state = "added to"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s favorites\n", args[0], state)
			return nil
		},
	}

	return cmd
}
