package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/hooks"
	"github.com/spf13/cobra"
)

// NewHooksCmd creates the hooks command with subcommands.
func NewHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage event hook scripts",
		Long:  "Hook scripts are Tengo programs run after apps are saved, deleted, installed or uninstalled",
	}

	cmd.AddCommand(newHooksListCmd(), newHooksInitCmd())

	return cmd
}

func newHooksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show which hook scripts are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			dir := store.Settings().HooksDir

			tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
			_, _ = fmt.Fprintln(tabWriter, "HOOK\tSCRIPT")
			for _, hookType := range hooks.HookTypes {
				path := filepath.Join(dir, string(hookType)+hooks.HookFileExtension)
				if _, err := os.Stat(path); err != nil {
					path = "-"
				}
				_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", hookType, path)
			}
			return tabWriter.Flush()
		},
	}
}

func newHooksInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write template scripts for missing hooks",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			written, err := hooks.WriteTemplates(store.Settings().HooksDir)
			if err != nil {
				return err
			}
			logger.Success("Hook templates written", logger.Fields{"count": len(written), "dir": store.Settings().HooksDir})
			return nil
		},
	}
}
