package cli

import (
	"fmt"
	"io"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/filter"
	"github.com/glorpus-work/apkstash/pkg/fsutil"
	"github.com/glorpus-work/apkstash/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewSaveCmd creates the save command.
func NewSaveCmd() *cobra.Command {
	var (
		filters     []string
		dryRun      bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "save [PACKAGE...]",
		Short: "Save installed apps to the save directory",
		Long: `Copy the installed archives of one or more apps into the save directory.
Apps with split archives are packed into a single bundle.

Name packages explicitly or select them with --filter.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(filters) == 0 {
				return fmt.Errorf("%w: name at least one package or pass --filter", errutils.ErrValidation)
			}
			return runSave(cmd, args, filters, orchestrator.SaveOptions{DryRun: dryRun, Concurrency: concurrency})
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Save every app matching the filters (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print destination names without writing")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel saves (0=max_concurrent)")

	return cmd
}

func runSave(cmd *cobra.Command, packages, rawFilters []string, opts orchestrator.SaveOptions) error {
	parsed := make([]filter.Filter, 0, len(rawFilters))
	for _, raw := range rawFilters {
		f, err := filter.Parse(raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, f)
	}

	out := cmd.OutOrStdout()
	a, err := newApp(cmd.Context(), orchestrator.Hooks{OnEvent: printProgress(out)})
	if err != nil {
		return err
	}
	defer a.Close()

	if !opts.DryRun {
		dir := a.Settings.SaveDir()
		if err := fsutil.CheckWritableDir(dir); err != nil {
			return errutils.Wrapf(errutils.Classify(err), "save directory %s is not writable", dir)
		}
	}

	snap, err := a.Registry.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list apps: %w", err)
	}

	var outcomes []orchestrator.SaveOutcome
	if len(packages) > 0 {
		outcomes, err = a.Orchestrator.SavePackages(cmd.Context(), packages, opts)
	} else {
		apps := filter.Apply(snap.All(), parsed...)
		if len(apps) == 0 {
			logger.Info("No apps match the filters")
			return nil
		}
		outcomes, err = a.Orchestrator.SaveApps(cmd.Context(), apps, opts)
	}

	saved := 0
	for _, o := range outcomes {
		if o.Err == nil {
			saved++
		}
	}
	if err != nil {
		return fmt.Errorf("saved %d of %d apps: %w", saved, len(outcomes), err)
	}
	if !opts.DryRun {
		logger.Success("Apps saved", logger.Fields{"count": saved, "dir": a.Settings.SaveDir()})
	}
	return nil
}

// printProgress prints orchestrator events as simple, human-friendly lines.
func printProgress(out io.Writer) func(orchestrator.Event) {
	return func(e orchestrator.Event) {
		switch {
		case e.Phase == orchestrator.PhaseInstalling:
			_, _ = fmt.Fprintf(out, "%s: %d%% (%s)\n", e.Phase, e.Percent, e.ID)
		case e.ID != "":
			_, _ = fmt.Fprintf(out, "%s: %s (%s)\n", e.Phase, e.Msg, e.ID)
		default:
			_, _ = fmt.Fprintf(out, "%s: %s\n", e.Phase, e.Msg)
		}
	}
}
