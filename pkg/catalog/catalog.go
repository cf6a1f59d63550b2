// Package catalog keeps the table of saved archives in step with the save
// directory and completes archive metadata lazily.
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/metrics"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/observable"
	"github.com/glorpus-work/apkstash/pkg/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultResolveConcurrency = 4

// Diff is what one reconciliation pass changed. Modified files appear in
// both Inserted and Deleted.
type Diff struct {
	Inserted  []string
	Deleted   []string
	Unchanged int
}

// Empty reports whether the pass changed nothing.
func (d Diff) Empty() bool {
	return len(d.Inserted) == 0 && len(d.Deleted) == 0
}

// ResolveSummary counts the outcome of a ResolvePending pass.
type ResolveSummary struct {
	Resolved int
	Failed   int
	Skipped  int
}

// Catalog reconciles a Store against the save directory of a storage.Tree.
type Catalog struct {
	store    Store
	tree     storage.Tree
	resolver MetaResolver
	saveDir  func() string
	metrics  *metrics.Metrics

	group singleflight.Group
	files *observable.Value[[]model.ArchiveFile]
	// viewMu orders List+Store pairs so an older read never replaces a newer one.
	viewMu sync.Mutex

	mu        sync.Mutex
	attempted map[string]bool

	// ResolveConcurrency bounds parallel resolutions in ResolvePending.
	ResolveConcurrency int
}

// New creates a catalog. saveDir returns the directory URI to reconcile and
// is read once at the start of every pass. m may be nil.
func New(store Store, tree storage.Tree, resolver MetaResolver, saveDir func() string, m *metrics.Metrics) *Catalog {
	return &Catalog{
		store:              store,
		tree:               tree,
		resolver:           resolver,
		saveDir:            saveDir,
		metrics:            m,
		files:              observable.New[[]model.ArchiveFile](nil),
		attempted:          make(map[string]bool),
		ResolveConcurrency: defaultResolveConcurrency,
	}
}

// Reconcile brings the store in line with the package archives currently in
// the save directory: new files are inserted unloaded, vanished files are
// deleted, and files whose size or modification time changed are replaced.
// All changes of a pass are applied in one transaction. Concurrent callers
// share the pass already in flight; a caller whose ctx ends stops waiting
// without aborting the shared pass.
func (c *Catalog) Reconcile(ctx context.Context) (Diff, error) {
	ch := c.group.DoChan("reconcile", func() (any, error) {
		return c.reconcile(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Diff{}, res.Err
		}
		return res.Val.(Diff), nil
	case <-ctx.Done():
		return Diff{}, errutils.Classify(ctx.Err())
	}
}

func (c *Catalog) reconcile(ctx context.Context) (Diff, error) {
	dir := c.saveDir()
	entries, err := c.tree.List(ctx, dir)
	if err != nil {
		c.metrics.ObserveReconcile(metrics.ResultFailure, 0, 0)
		return Diff{}, errutils.Wrapf(err, "failed to list save directory %s", dir)
	}
	rows, err := c.store.List(ctx)
	if err != nil {
		c.metrics.ObserveReconcile(metrics.ResultFailure, 0, 0)
		return Diff{}, errutils.Wrap(err, "failed to read catalog")
	}

	known := make(map[string]*model.ArchiveFile, len(rows))
	for i := range rows {
		known[rows[i].FileURI] = &rows[i]
	}

	var (
		diff    Diff
		inserts []model.ArchiveFile
		seen    = make(map[string]bool, len(entries))
	)
	for _, e := range entries {
		if e.MimeType != model.MimeTypeAPK {
			continue
		}
		seen[e.URI] = true
		candidate := rowFromEntry(e)
		if row, ok := known[e.URI]; ok {
			if row.SameContent(&candidate) {
				diff.Unchanged++
				continue
			}
			diff.Deleted = append(diff.Deleted, e.URI)
		}
		inserts = append(inserts, candidate)
	}
	for uri := range known {
		if !seen[uri] {
			diff.Deleted = append(diff.Deleted, uri)
		}
	}
	sort.Strings(diff.Deleted)
	SortByName(inserts)
	for _, row := range inserts {
		diff.Inserted = append(diff.Inserted, row.FileURI)
	}

	if diff.Empty() {
		c.metrics.ObserveReconcile(metrics.ResultSuccess, 0, 0)
		logger.Debug("Catalog up to date", logger.Fields{"dir": dir, "files": diff.Unchanged})
		c.publish(ctx)
		return diff, nil
	}

	if err := c.store.Apply(ctx, inserts, diff.Deleted); err != nil {
		c.metrics.ObserveReconcile(metrics.ResultFailure, 0, 0)
		return Diff{}, errutils.Wrap(err, "failed to apply catalog changes")
	}

	c.mu.Lock()
	for _, uri := range diff.Deleted {
		delete(c.attempted, uri)
	}
	c.mu.Unlock()

	c.metrics.ObserveReconcile(metrics.ResultSuccess, len(diff.Inserted), len(diff.Deleted))
	logger.Info("Catalog reconciled", logger.Fields{
		"dir":       dir,
		"inserted":  len(diff.Inserted),
		"deleted":   len(diff.Deleted),
		"unchanged": diff.Unchanged,
	})
	c.publish(ctx)
	return diff, nil
}

// Resolve reads the metadata of the archive at uri and marks its row loaded.
// A failure leaves the row as it was and is returned; the row is not visited
// again by ResolvePending.
func (c *Catalog) Resolve(ctx context.Context, uri string) (model.ArchiveFile, error) {
	row, err := c.store.Get(ctx, uri)
	if err != nil {
		return model.ArchiveFile{}, err
	}
	resolved, err := c.resolve(ctx, row)
	if err != nil {
		return model.ArchiveFile{}, err
	}
	c.publish(ctx)
	return resolved, nil
}

func (c *Catalog) resolve(ctx context.Context, row model.ArchiveFile) (model.ArchiveFile, error) {
	c.markAttempted(row.FileURI)

	meta, err := c.readMeta(ctx, row.FileURI)
	if err != nil {
		if ctx.Err() == nil {
			c.metrics.ObserveResolve(metrics.ResultFailure)
			logger.Warn("Failed to resolve archive metadata", logger.Fields{"uri": row.FileURI, "error": err.Error()})
		}
		return model.ArchiveFile{}, err
	}

	// the file may have been replaced while it was being read
	current, err := c.store.Get(ctx, row.FileURI)
	if err != nil {
		return model.ArchiveFile{}, err
	}
	if !current.SameContent(&row) {
		return model.ArchiveFile{}, errutils.Wrapf(errutils.ErrAlreadyExists, "archive %s changed during resolution", row.FileURI)
	}

	resolved := current.WithMeta(meta)
	if err := c.store.Upsert(ctx, resolved); err != nil {
		return model.ArchiveFile{}, errutils.Wrap(err, "failed to store archive metadata")
	}
	c.metrics.ObserveResolve(metrics.ResultSuccess)
	c.metrics.ObserveUpsert(1)
	return resolved, nil
}

func (c *Catalog) readMeta(ctx context.Context, uri string) (model.ApkMeta, error) {
	f, err := c.tree.Open(ctx, uri)
	if err != nil {
		return model.ApkMeta{}, err
	}
	defer f.Close()
	return c.resolver.Resolve(ctx, f)
}

// ResolvePending resolves every unloaded row that has not been attempted yet
// by this catalog. Individual failures are logged and counted, never
// returned; the error is non-nil only when the store cannot be read or ctx
// ends.
func (c *Catalog) ResolvePending(ctx context.Context) (ResolveSummary, error) {
	rows, err := c.store.List(ctx)
	if err != nil {
		return ResolveSummary{}, errutils.Wrap(err, "failed to read catalog")
	}

	var (
		mu      sync.Mutex
		summary ResolveSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.ResolveConcurrency))
	for _, row := range rows {
		if row.Loaded {
			continue
		}
		if c.wasAttempted(row.FileURI) {
			summary.Skipped++
			continue
		}
		g.Go(func() error {
			_, err := c.resolve(gctx, row)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Resolved++
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				summary.Failed++
			}
			return nil
		})
	}
	err = g.Wait()
	if summary.Resolved > 0 {
		c.publish(context.WithoutCancel(ctx))
	}
	if err != nil {
		return summary, errutils.Classify(err)
	}
	return summary, nil
}

// Track stats the file at uri and upserts it as an unloaded row, replacing
// any previous row for the same URI.
func (c *Catalog) Track(ctx context.Context, uri string) (model.ArchiveFile, error) {
	entry, err := c.tree.Stat(ctx, uri)
	if err != nil {
		return model.ArchiveFile{}, err
	}
	row := rowFromEntry(entry)
	if err := c.Upsert(ctx, row); err != nil {
		return model.ArchiveFile{}, err
	}
	return row, nil
}

// Upsert inserts or replaces a row.
func (c *Catalog) Upsert(ctx context.Context, file model.ArchiveFile) error {
	if err := c.store.Upsert(ctx, file); err != nil {
		return errutils.Wrapf(err, "failed to store %s", file.FileURI)
	}
	c.mu.Lock()
	if file.Loaded {
		c.attempted[file.FileURI] = true
	} else {
		delete(c.attempted, file.FileURI)
	}
	c.mu.Unlock()

	c.metrics.ObserveUpsert(1)
	c.publish(ctx)
	return nil
}

// RemoveApk deletes the archive file and then its row. When the file cannot
// be deleted the row is kept and the error returned.
func (c *Catalog) RemoveApk(ctx context.Context, uri string) error {
	if err := c.tree.Delete(ctx, uri); err != nil {
		return errutils.Wrapf(err, "failed to delete archive %s", uri)
	}
	if err := c.store.Delete(ctx, uri); err != nil {
		return errutils.Wrapf(err, "failed to remove catalog row %s", uri)
	}
	c.mu.Lock()
	delete(c.attempted, uri)
	c.mu.Unlock()

	c.metrics.ObserveDelete(1)
	c.publish(ctx)
	return nil
}

// Files returns the current rows ordered by file name.
func (c *Catalog) Files(ctx context.Context) ([]model.ArchiveFile, error) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	rows, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	c.files.Store(rows)
	return rows, nil
}

// Subscribe streams name-ordered snapshots of the table until ctx is done.
// The first value is the table as it is now.
func (c *Catalog) Subscribe(ctx context.Context) <-chan []model.ArchiveFile {
	c.publish(ctx)
	return c.files.Subscribe(ctx)
}

func (c *Catalog) publish(ctx context.Context) {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()
	rows, err := c.store.List(ctx)
	if err != nil {
		if !errors.Is(err, errutils.ErrCanceled) {
			logger.Warn("Failed to refresh catalog view", logger.Fields{"error": err.Error()})
		}
		return
	}
	c.files.Store(rows)
}

func (c *Catalog) markAttempted(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempted[uri] = true
}

func (c *Catalog) wasAttempted(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempted[uri]
}

func rowFromEntry(e storage.Entry) model.ArchiveFile {
	return model.ArchiveFile{
		FileURI:          e.URI,
		FileName:         e.Name,
		FileType:         e.MimeType,
		FileLastModified: e.ModTime,
		FileSize:         e.Size,
	}
}
