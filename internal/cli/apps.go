package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/glorpus-work/apkstash/pkg/filter"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/orchestrator"
	"github.com/glorpus-work/apkstash/pkg/registry"
	"github.com/spf13/cobra"
)

// NewAppsCmd creates the apps command.
func NewAppsCmd() *cobra.Command {
	var (
		filters    []string
		sortKey    string
		descending bool
	)

	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List installed apps",
		Long: `List the apps installed on the device, favorites first, then user
and system apps.

Filters can be repeated and must all match:
  all, favorite, system, user, launchable,
  category:<name>, installer:<label>, package:<glob>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApps(cmd, filters, sortKey, descending)
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Filter apps (repeatable)")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", string(filter.ByName), "Sort by name|size|installed|updated|version")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort in descending order")

	cmd.Example = `  # User apps from the Play Store, biggest first
  apkstash apps -f user -f "installer:Google Play Store" --sort size --desc

  # Everything under com.google
  apkstash apps -f "package:com.google.**"`

	return cmd
}

func runApps(cmd *cobra.Command, rawFilters []string, rawSort string, descending bool) error {
	parsed := make([]filter.Filter, 0, len(rawFilters))
	for _, raw := range rawFilters {
		f, err := filter.Parse(raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, f)
	}
	key, err := filter.ParseSortKey(rawSort)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), orchestrator.Hooks{})
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.Registry.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list apps: %w", err)
	}
	printApps(cmd.OutOrStdout(), snap, parsed, key, descending)
	return nil
}

// printApps writes the buckets of snap in order, each filtered and sorted.
func printApps(out io.Writer, snap registry.Snapshot, filters []filter.Filter, key filter.SortKey, descending bool) {
	buckets := []struct {
		name string
		apps []model.InstalledApp
	}{
		{"favorite", snap.Favorites},
		{"user", snap.User},
		{"system", snap.System},
	}

	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "PACKAGE\tLABEL\tVERSION\tSIZE (MB)\tBUCKET\tINSTALLER")
	shown := 0
	for _, b := range buckets {
		for _, app := range filter.Sort(filter.Apply(b.apps, filters...), key, descending) {
			_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%.1f\t%s\t%s\n",
				app.PackageName, truncate(app.Label, MaxLabelLength), app.VersionName, app.Size(), b.name, app.InstallerLabel)
			shown++
		}
	}
	_ = tabWriter.Flush()
	_, _ = fmt.Fprintf(out, "\n%d of %d apps\n", shown, snap.Len())
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
