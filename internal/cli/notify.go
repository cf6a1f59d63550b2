package cli

import (
	"fmt"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/events"
	"github.com/glorpus-work/apkstash/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewNotifyCmd creates the notify command. It lets package managers and
// scripts report device changes so that hooks run for them.
func NewNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify installed|uninstalled PACKAGE",
		Short: "Report an installed or removed package",
		Long: `Report that a package was installed on or removed from the device.
The matching on-installed or on-uninstalled hook runs with the package name.`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{events.KindInstalled.String(), events.KindUninstalled.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := events.ParseKind(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), orchestrator.Hooks{})
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[1]
			switch kind {
			case events.KindInstalled:
				err = a.Orchestrator.PackageInstalled(cmd.Context(), name)
			case events.KindUninstalled:
				err = a.Orchestrator.PackageUninstalled(cmd.Context(), name)
			default:
				return fmt.Errorf("unsupported change %q, want installed or uninstalled", args[0])
			}
			if err != nil {
				return err
			}
			logger.Debug("Change reported", logger.Fields{"kind": kind.String(), "package": name})
			return nil
		},
	}

	return cmd
}
