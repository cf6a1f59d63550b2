package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/orchestrator"
	"github.com/glorpus-work/apkstash/pkg/storage"
	"github.com/spf13/cobra"
)

// NewCatalogCmd creates the catalog command with subcommands.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage saved archives",
		Long:  "Inspect and maintain the catalog of archives in the save directory",
	}

	cmd.AddCommand(
		newCatalogSyncCmd(),
		newCatalogListCmd(),
		newCatalogResolveCmd(),
		newCatalogRemoveCmd(),
	)

	return cmd
}

func newCatalogSyncCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the catalog with the save directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), orchestrator.Hooks{})
			if err != nil {
				return err
			}
			defer a.Close()

			diff, err := a.Catalog.Reconcile(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reconcile catalog: %w", err)
			}
			logger.Success("Catalog synchronized", logger.Fields{
				"inserted":  len(diff.Inserted),
				"deleted":   len(diff.Deleted),
				"unchanged": diff.Unchanged,
			})
			if !resolve {
				return nil
			}
			summary, err := a.Catalog.ResolvePending(cmd.Context())
			logger.Info("Metadata resolved", logger.Fields{"resolved": summary.Resolved, "failed": summary.Failed, "skipped": summary.Skipped})
			return err
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", true, "Resolve metadata of new archives")

	return cmd
}

func newCatalogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued archives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), orchestrator.Hooks{})
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := a.Catalog.Files(cmd.Context())
			if err != nil {
				return err
			}
			printFiles(cmd.OutOrStdout(), files)
			return nil
		},
	}

	return cmd
}

func newCatalogResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [FILE]",
		Short: "Read app metadata from archives",
		Long: `Read the owning app of archives that have not been resolved yet.
With a FILE argument (path or URI) that archive is resolved again, even if an
earlier attempt failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), orchestrator.Hooks{})
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				file, err := a.Catalog.Resolve(cmd.Context(), toURI(args[0]))
				if err != nil {
					return err
				}
				printFiles(cmd.OutOrStdout(), []model.ArchiveFile{file})
				return nil
			}
			summary, err := a.Catalog.ResolvePending(cmd.Context())
			logger.Info("Metadata resolved", logger.Fields{"resolved": summary.Resolved, "failed": summary.Failed, "skipped": summary.Skipped})
			return err
		},
	}

	return cmd
}

func newCatalogRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm FILE...",
		Aliases: []string{"remove"},
		Short:   "Delete saved archives",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), orchestrator.Hooks{})
			if err != nil {
				return err
			}
			defer a.Close()

			for _, arg := range args {
				uri := toURI(arg)
				if err := a.Orchestrator.DeleteArchive(cmd.Context(), uri); err != nil {
					return err
				}
				logger.Success("Archive deleted", logger.Fields{"uri": uri})
			}
			return nil
		},
	}

	return cmd
}

// toURI accepts either a file URI or a path.
func toURI(arg string) string {
	if strings.HasPrefix(arg, "file://") {
		return arg
	}
	return storage.URIFromPath(arg)
}

func printFiles(out io.Writer, files []model.ArchiveFile) {
	if len(files) == 0 {
		_, _ = fmt.Fprintln(out, "No saved archives")
		return
	}
	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "FILE\tSIZE (MB)\tAPP\tPACKAGE\tVERSION")
	for _, f := range files {
		app, pkg, version := "?", "", ""
		if f.Loaded {
			app = f.DisplayName()
			pkg = derefOr(f.AppPackageName, "")
			version = derefOr(f.AppVersionName, "")
		}
		_, _ = fmt.Fprintf(tabWriter, "%s\t%.1f\t%s\t%s\t%s\n",
			f.FileName, float64(f.FileSize)/model.BytesPerMB, truncate(app, MaxLabelLength), pkg, version)
	}
	_ = tabWriter.Flush()
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
