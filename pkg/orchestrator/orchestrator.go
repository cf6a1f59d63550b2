// Package orchestrator composes the registry, the extraction engine, the
// catalog and the event bus into the operations the CLI exposes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/events"
	"github.com/glorpus-work/apkstash/pkg/extract"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/registry"
	"github.com/glorpus-work/apkstash/pkg/storage"
	"golang.org/x/sync/errgroup"
)

// Orchestrator ties the registry, engine and catalog together and announces
// completed operations on the bus.
type Orchestrator struct {
	Registry AppRegistry
	Packages registry.PackageSource
	Engine   Extractor
	Catalog  ArchiveCatalog
	Settings SettingsSource
	Bus      Emitter
	Hooks    Hooks // Hooks for progress and event notifications

	hookMu sync.Mutex
}

// New constructs an Orchestrator from existing components. Helper for wiring.
func New(reg AppRegistry, packages registry.PackageSource, engine Extractor, cat ArchiveCatalog, settings SettingsSource, bus Emitter, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Packages: packages,
		Engine:   engine,
		Catalog:  cat,
		Settings: settings,
		Bus:      bus,
		Hooks:    hooks,
	}
}

func (o *Orchestrator) emit(e Event) {
	if o.Hooks.OnEvent == nil {
		return
	}
	o.hookMu.Lock()
	defer o.hookMu.Unlock()
	o.Hooks.OnEvent(e)
}

func (o *Orchestrator) publish(kind events.Kind, value any) {
	if o.Bus != nil {
		o.Bus.Emit(events.Event{Kind: kind, Value: value})
	}
}

// SaveApps extracts every app into the save directory. Apps are processed
// concurrently up to the configured limit; a failing app does not stop the
// others. The outcomes are returned in input order, and the failures are
// also collected into an *errutils.BatchError. Single-archive results are
// tracked in the catalog; each success emits a SAVED event with the archive
// URI.
func (o *Orchestrator) SaveApps(ctx context.Context, apps []model.InstalledApp, opts SaveOptions) ([]SaveOutcome, error) {
	if o.Engine == nil && !opts.DryRun {
		return nil, fmt.Errorf("extraction engine is not configured")
	}
	if o.Settings == nil {
		return nil, fmt.Errorf("settings are not configured")
	}

	// the save directory and naming rules are fixed for the whole batch
	settings := o.Settings.Settings()
	dirURI := storage.URIFromPath(settings.SaveDir)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = settings.MaxConcurrent
	}
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]SaveOutcome, len(apps))
	taken := make(map[string]bool, len(apps))
	for i := range apps {
		suffix := suffixFor(&apps[i], settings.APKSuffix, settings.BundleSuffix)
		outcomes[i] = SaveOutcome{
			Package: apps[i].PackageName,
			Name:    uniqueName(DestinationName(settings.NamePattern, &apps[i]), suffix, &apps[i], taken),
		}
	}
	if opts.DryRun {
		for _, out := range outcomes {
			o.emit(Event{Phase: PhaseSaving, ID: out.Package, Msg: out.Name})
		}
		o.emit(Event{Phase: PhaseDone, Msg: "dry-run"})
		return outcomes, nil
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i := range apps {
		g.Go(func() error {
			o.saveOne(ctx, &apps[i], &outcomes[i], dirURI, settings.APKSuffix, settings.BundleSuffix)
			return nil
		})
	}
	_ = g.Wait()

	batch := &errutils.BatchError{}
	for _, out := range outcomes {
		batch.Add(out.Package, out.Err)
	}
	logger.Info("Save finished", logger.Fields{
		"apps":   len(apps),
		"failed": batch.Len(),
	})
	o.emit(Event{Phase: PhaseDone, Msg: fmt.Sprintf("%d saved, %d failed", len(apps)-batch.Len(), batch.Len())})
	return outcomes, batch.ErrOrNil()
}

func (o *Orchestrator) saveOne(ctx context.Context, app *model.InstalledApp, out *SaveOutcome, dirURI, apkSuffix, bundleSuffix string) {
	o.emit(Event{Phase: PhaseSaving, ID: app.PackageName, Msg: out.Name})

	req := extract.Request{
		SourcePaths:     app.SourcePaths(),
		DestinationDir:  dirURI,
		DestinationName: out.Name,
		MimeType:        model.MimeTypeAPK,
		Suffix:          suffixFor(app, apkSuffix, bundleSuffix),
		OnProgress: func(name string) {
			o.emit(Event{Phase: PhaseEntry, ID: app.PackageName, Msg: name})
		},
	}
	if app.IsSplit() {
		req.MimeType = model.MimeTypeBundle
	}

	res, err := o.Engine.Save(ctx, req)
	if err != nil {
		out.Err = err
		logger.Warn("Failed to save app", logger.Fields{"package": app.PackageName, "error": err.Error()})
		if errors.Is(err, errutils.ErrNotFound) && o.Registry != nil {
			// the package was uninstalled while it was being saved
			o.Registry.Remove(app.PackageName)
			logger.Debug("Removed vanished package from registry", logger.Fields{"package": app.PackageName})
		}
		o.emit(Event{Phase: PhaseError, ID: app.PackageName, Msg: err.Error()})
		return
	}
	out.Result = res

	if res.Shape == extract.ShapeSingle && o.Catalog != nil {
		file, err := o.Catalog.Track(ctx, res.URI)
		if err != nil {
			// the next reconciliation picks the archive up
			logger.Warn("Failed to track saved archive", logger.Fields{"uri": res.URI, "error": err.Error()})
		} else {
			out.File = &file
		}
	}

	o.publish(events.KindSaved, res.URI)
	o.emit(Event{Phase: PhaseSaved, ID: app.PackageName, Msg: res.URI})
}

// suffixFor picks the bundle suffix for split apps and the archive suffix
// otherwise.
func suffixFor(app *model.InstalledApp, apkSuffix, bundleSuffix string) string {
	if app.IsSplit() {
		return bundleSuffix
	}
	return apkSuffix
}

// SavePackages looks the named packages up in the current registry snapshot
// and saves them. Unknown names are reported as not-found item errors.
func (o *Orchestrator) SavePackages(ctx context.Context, names []string, opts SaveOptions) ([]SaveOutcome, error) {
	if o.Registry == nil {
		return nil, fmt.Errorf("registry is not configured")
	}
	snap := o.Registry.Snapshot()
	apps := make([]model.InstalledApp, 0, len(names))
	missing := &errutils.BatchError{}
	for _, name := range names {
		app, ok := snap.Find(name)
		if !ok {
			missing.Add(name, errutils.ErrNotFoundWithName("package", name))
			continue
		}
		apps = append(apps, app)
	}

	outcomes, err := o.SaveApps(ctx, apps, opts)
	if missing.Len() == 0 {
		return outcomes, err
	}
	for _, item := range missing.Items {
		outcomes = append(outcomes, SaveOutcome{Package: item.ID, Err: item.Err})
	}
	var batch *errutils.BatchError
	if errors.As(err, &batch) {
		missing.Items = append(batch.Items, missing.Items...)
	} else if err != nil {
		return outcomes, err
	}
	return outcomes, missing
}

// DeleteArchive removes an archive and its catalog row, then emits DELETED.
func (o *Orchestrator) DeleteArchive(ctx context.Context, uri string) error {
	if o.Catalog == nil {
		return fmt.Errorf("catalog is not configured")
	}
	if err := o.Catalog.RemoveApk(ctx, uri); err != nil {
		o.emit(Event{Phase: PhaseError, ID: uri, Msg: err.Error()})
		return err
	}
	o.publish(events.KindDeleted, uri)
	o.emit(Event{Phase: PhaseDeleted, ID: uri})
	return nil
}

// PackageInstalled snapshots a newly installed package into the registry and
// emits INSTALLED.
func (o *Orchestrator) PackageInstalled(ctx context.Context, name string) error {
	if o.Registry == nil || o.Packages == nil {
		return fmt.Errorf("registry is not configured")
	}
	app, err := o.Packages.Get(ctx, name)
	if err != nil {
		return errutils.Wrapf(err, "failed to read installed package %s", name)
	}
	o.Registry.Add(app)
	logger.Debug("Package installed", logger.Fields{"package": name})
	o.publish(events.KindInstalled, name)
	return nil
}

// PackageUninstalled drops a package from the registry and emits UNINSTALLED.
func (o *Orchestrator) PackageUninstalled(_ context.Context, name string) error {
	if o.Registry == nil {
		return fmt.Errorf("registry is not configured")
	}
	o.Registry.Remove(name)
	logger.Debug("Package uninstalled", logger.Fields{"package": name})
	o.publish(events.KindUninstalled, name)
	return nil
}

// InstallProgress forwards raw install progress for name. percent is clamped
// to [0, 100].
func (o *Orchestrator) InstallProgress(name string, percent int) {
	percent = max(0, min(100, percent))
	o.emit(Event{Phase: PhaseInstalling, ID: name, Percent: percent})
}

// ToggleFavorite flips the persisted favorite flag of name and moves the app
// between registry buckets. It reports the new state.
func (o *Orchestrator) ToggleFavorite(name string) (bool, error) {
	if o.Settings == nil {
		return false, fmt.Errorf("settings are not configured")
	}
	favorite, err := o.Settings.ToggleFavorite(name)
	if err != nil {
		return false, err
	}
	if o.Registry != nil {
		o.Registry.SetFavorite(name, favorite)
	}
	return favorite, nil
}
