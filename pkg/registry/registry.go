//go:generate mockgen -destination=./mocks/registry.go . PackageSource

// Package registry holds the installed applications as an atomically
// published (favorites, user, system) snapshot.
package registry

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/metrics"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/observable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultConcurrency = 8

// PackageSource enumerates installed packages on the platform.
type PackageSource interface {
	// List returns the names of every installed package.
	List(ctx context.Context) ([]string, error)
	// Get snapshots one package. It fails for packages that are not installed.
	Get(ctx context.Context, name string) (model.InstalledApp, error)
}

// Snapshot is the published triple. Its slices are never modified after
// publication.
type Snapshot struct {
	Favorites []model.InstalledApp
	User      []model.InstalledApp
	System    []model.InstalledApp
}

// All returns every app, favorites first.
func (s Snapshot) All() []model.InstalledApp {
	out := make([]model.InstalledApp, 0, s.Len())
	out = append(out, s.Favorites...)
	out = append(out, s.User...)
	return append(out, s.System...)
}

// Len returns the number of apps across all buckets.
func (s Snapshot) Len() int {
	return len(s.Favorites) + len(s.User) + len(s.System)
}

// Find returns the app with the given package name.
func (s Snapshot) Find(name string) (model.InstalledApp, bool) {
	for _, bucket := range [][]model.InstalledApp{s.Favorites, s.User, s.System} {
		for _, app := range bucket {
			if app.PackageName == name {
				return app, true
			}
		}
	}
	return model.InstalledApp{}, false
}

// Registry is the in-memory set of installed applications.
type Registry struct {
	source    PackageSource
	favorites func() []string
	metrics   *metrics.Metrics

	group singleflight.Group
	snap  *observable.Value[Snapshot]

	// Concurrency bounds parallel Get calls during Refresh.
	Concurrency int
}

// New creates an empty registry. favorites returns the persisted favorite
// package names and is read on every Refresh and Add. m may be nil.
func New(source PackageSource, favorites func() []string, m *metrics.Metrics) *Registry {
	if favorites == nil {
		favorites = func() []string { return nil }
	}
	return &Registry{
		source:      source,
		favorites:   favorites,
		metrics:     m,
		snap:        observable.New(Snapshot{}),
		Concurrency: defaultConcurrency,
	}
}

// Refresh re-enumerates the platform and publishes a new snapshot. Packages
// that fail to load are left out. Concurrent callers share one pass. When
// listing itself fails the previous snapshot stays published.
func (r *Registry) Refresh(ctx context.Context) (Snapshot, error) {
	ch := r.group.DoChan("refresh", func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	case <-ctx.Done():
		return Snapshot{}, errutils.Classify(ctx.Err())
	}
}

func (r *Registry) refresh(ctx context.Context) (Snapshot, error) {
	names, err := r.source.List(ctx)
	if err != nil {
		return Snapshot{}, errutils.Wrap(errutils.Classify(err), "failed to list installed packages")
	}

	apps := make([]model.InstalledApp, len(names))
	loaded := make([]bool, len(names))
	var mu sync.Mutex
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Concurrency))
	for i, name := range names {
		g.Go(func() error {
			app, err := r.source.Get(gctx, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.DebugfWithFields(logger.Fields{"package": name, "error": err.Error()}, "Skipping package")
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			apps[i] = app
			loaded[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, errutils.Classify(err)
	}

	kept := make([]model.InstalledApp, 0, len(apps))
	for i, app := range apps {
		if loaded[i] {
			kept = append(kept, app)
		}
	}

	snap := partition(kept, toSet(r.favorites()))
	r.snap.Store(snap)
	r.metrics.SetRegistryApps(len(snap.Favorites), len(snap.User), len(snap.System))
	logger.Info("Installed apps refreshed", logger.Fields{
		"favorites": len(snap.Favorites),
		"user":      len(snap.User),
		"system":    len(snap.System),
		"skipped":   skipped,
	})
	return snap, nil
}

// Add places app into its bucket without re-enumerating, replacing any app
// with the same package name.
func (r *Registry) Add(app model.InstalledApp) Snapshot {
	favorites := toSet(r.favorites())
	snap := r.snap.Update(func(cur Snapshot) Snapshot {
		apps := without(cur.All(), app.PackageName)
		return partition(append(apps, app), favorites)
	})
	r.publishMetrics(snap)
	return snap
}

// Remove drops the app with the given package name from every bucket.
func (r *Registry) Remove(name string) Snapshot {
	snap := r.snap.Update(func(cur Snapshot) Snapshot {
		return Snapshot{
			Favorites: without(cur.Favorites, name),
			User:      without(cur.User, name),
			System:    without(cur.System, name),
		}
	})
	r.publishMetrics(snap)
	return snap
}

// SetFavorite moves an app in or out of the favorites bucket. It reports
// whether the app is present.
func (r *Registry) SetFavorite(name string, favorite bool) bool {
	found := false
	snap := r.snap.Update(func(cur Snapshot) Snapshot {
		apps := cur.All()
		for i := range apps {
			if apps[i].PackageName == name {
				found = true
				apps[i] = apps[i].WithFavorite(favorite)
			}
		}
		if !found {
			return cur
		}
		return partition(apps, nil)
	})
	r.publishMetrics(snap)
	return found
}

// Snapshot returns the current triple.
func (r *Registry) Snapshot() Snapshot {
	return r.snap.Load()
}

// Subscribe streams snapshots until ctx is done, starting with the current one.
func (r *Registry) Subscribe(ctx context.Context) <-chan Snapshot {
	return r.snap.Subscribe(ctx)
}

func (r *Registry) publishMetrics(s Snapshot) {
	r.metrics.SetRegistryApps(len(s.Favorites), len(s.User), len(s.System))
}

// partition splits apps into buckets. When favorites is non-nil it decides
// the favorite flag; otherwise the flag already on each app is used. A
// favorite never appears in the user or system bucket.
func partition(apps []model.InstalledApp, favorites map[string]bool) Snapshot {
	var s Snapshot
	for _, app := range apps {
		if favorites != nil {
			app = app.WithFavorite(favorites[app.PackageName])
		}
		switch {
		case app.Favorite:
			s.Favorites = append(s.Favorites, app)
		case app.IsSystem():
			s.System = append(s.System, app)
		default:
			s.User = append(s.User, app)
		}
	}
	for _, bucket := range [][]model.InstalledApp{s.Favorites, s.User, s.System} {
		slices.SortFunc(bucket, func(a, b model.InstalledApp) int {
			return cmp.Compare(a.PackageName, b.PackageName)
		})
	}
	return s
}

func without(apps []model.InstalledApp, name string) []model.InstalledApp {
	out := make([]model.InstalledApp, 0, len(apps))
	for _, app := range apps {
		if app.PackageName != name {
			out = append(out, app)
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
