package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/adb"
	"github.com/glorpus-work/apkstash/pkg/apkinfo"
	"github.com/glorpus-work/apkstash/pkg/archive"
	"github.com/glorpus-work/apkstash/pkg/catalog"
	"github.com/glorpus-work/apkstash/pkg/catalog/sqlite"
	"github.com/glorpus-work/apkstash/pkg/config"
	"github.com/glorpus-work/apkstash/pkg/events"
	"github.com/glorpus-work/apkstash/pkg/extract"
	"github.com/glorpus-work/apkstash/pkg/hooks"
	"github.com/glorpus-work/apkstash/pkg/metrics"
	"github.com/glorpus-work/apkstash/pkg/orchestrator"
	"github.com/glorpus-work/apkstash/pkg/registry"
	"github.com/glorpus-work/apkstash/pkg/storage"
	"github.com/glorpus-work/apkstash/pkg/storage/localfs"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	SourceDir  *string
	Serial     *string
)

// metricsKey registers the event counter on the bus.
const metricsKey = "metrics"

// app is the wired component graph a command runs against.
type app struct {
	Settings     *config.Store
	Metrics      *metrics.Metrics
	Bus          *events.Bus
	Hooks        *hooks.Manager
	Packages     registry.PackageSource
	Registry     *registry.Registry
	Catalog      *catalog.Catalog
	Orchestrator *orchestrator.Orchestrator

	db *sqlite.Store
}

// current is the graph of the running command, kept for the metrics dump.
var current *app

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// an empty path keeps the configuration in memory
		logger.Warn("Failed to get default config path, using defaults", logger.Fields{"error": err.Error()})
		return ""
	}
	return defaultPath
}

// loadStore opens the configuration and applies the logging settings.
func loadStore() (*config.Store, error) {
	store, err := config.OpenStore(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	configureLogger(store.Settings())
	return store, nil
}

// newApp wires every component. The caller must Close the result.
func newApp(ctx context.Context, progress orchestrator.Hooks) (*app, error) {
	store, err := loadStore()
	if err != nil {
		return nil, err
	}
	settings := store.Settings()

	a := &app{
		Settings: store,
		Metrics:  metrics.New(),
		Bus:      events.NewBus(),
		Hooks:    hooks.NewManager(),
	}
	a.Bus.Register(metricsKey, func(e events.Event) { a.Metrics.ObserveEvent(e.Kind.String()) }, events.KindAny)

	if _, err := hooks.LoadDir(a.Hooks, settings.HooksDir); err != nil {
		logger.Warn("Failed to load hooks", logger.Fields{"dir": settings.HooksDir, "error": err.Error()})
	}
	a.Hooks.Attach(a.Bus)

	archiver := archive.NewManager()
	resolver := apkinfo.NewResolver(archiver)
	tree := localfs.New()

	var source extract.Source
	if SourceDir != nil && *SourceDir != "" {
		a.Packages = registry.NewDirSource(*SourceDir, resolver)
		source = extract.LocalSource{}
	} else {
		serial := settings.ADB.Serial
		if Serial != nil && *Serial != "" {
			serial = *Serial
		}
		device := adb.NewDevice(settings.ADB.Path, serial)
		a.Packages = device
		source = device
	}

	a.db, err = sqlite.Open(ctx, filepath.Join(settings.StateDir, sqlite.FileName))
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog.New(a.db, tree, resolver, func() string {
		return storage.URIFromPath(store.SaveDir())
	}, a.Metrics)
	a.Registry = registry.New(a.Packages, store.Favorites, a.Metrics)

	engine := extract.NewEngine(tree, source, archiver, a.Metrics)
	a.Orchestrator = orchestrator.New(a.Registry, a.Packages, engine, a.Catalog, store, a.Bus, progress)

	current = a
	return a, nil
}

// Close releases the catalog database and detaches the hooks.
func (a *app) Close() {
	a.Hooks.Detach(a.Bus)
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close catalog database", logger.Fields{"error": err.Error()})
		}
	}
}
