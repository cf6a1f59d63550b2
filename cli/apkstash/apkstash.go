package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/apkstash/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	verbose     bool
	sourceDir   string
	serial      string
	showMetrics bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apkstash",
		Short: "Save installed Android apps as archives",
		Long: `apkstash copies the installed archives of Android apps into a local
save directory and keeps a catalog of what is stored there:
- apps: list installed apps with filters and sort orders
- save: extract apps, packing split apps into one bundle
- catalog: reconcile, inspect and prune the save directory`,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !showMetrics {
				return nil
			}
			return cli.PrintMetrics(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&sourceDir, "source-dir", "", "read apps from a directory of <package>/base.apk instead of a device")
	cmd.PersistentFlags().StringVar(&serial, "serial", "", "device serial (default: adb.serial setting)")
	cmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print collected metrics after the command")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.SourceDir = &sourceDir
	cli.Serial = &serial

	// Add subcommands
	cmd.AddCommand(
		cli.NewAppsCmd(),
		cli.NewSaveCmd(),
		cli.NewCatalogCmd(),
		cli.NewFavoriteCmd(),
		cli.NewNotifyCmd(),
		cli.NewHooksCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
