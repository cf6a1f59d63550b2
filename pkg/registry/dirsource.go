package registry

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/mholt/archives"
)

const (
	baseName    = "base.apk"
	splitGlob   = "split_*.apk"
	systemDir   = "system"
	packageKind = "package"
)

// MetaReader reads owning-app metadata from an open archive.
type MetaReader interface {
	Resolve(ctx context.Context, f archives.ReaderAtSeeker) (model.ApkMeta, error)
}

// DirSource is a PackageSource over a directory laid out like the platform
// app directories:
//
//	<root>/<package>/base.apk
//	<root>/<package>/split_<name>.apk
//	<root>/system/<package>/base.apk
//
// Packages under system/ are system apps. A package present in both places
// is an updated system app served from the user copy.
type DirSource struct {
	Root string
	// Meta, when set, fills label and version from the base archive.
	Meta MetaReader
}

var _ PackageSource = (*DirSource)(nil)

// NewDirSource returns a source rooted at root.
func NewDirSource(root string, meta MetaReader) *DirSource {
	return &DirSource{Root: root, Meta: meta}
}

// List returns every package directory holding a base archive.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errutils.Classify(err)
	}
	user, err := packageDirs(s.Root, true)
	if err != nil {
		return nil, err
	}
	system, err := packageDirs(filepath.Join(s.Root, systemDir), false)
	if err != nil && !errors.Is(err, errutils.ErrNotFound) {
		return nil, err
	}
	names := append(user, system...)
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Get snapshots one package.
func (s *DirSource) Get(ctx context.Context, name string) (model.InstalledApp, error) {
	if err := ctx.Err(); err != nil {
		return model.InstalledApp{}, errutils.Classify(err)
	}
	userDir := filepath.Join(s.Root, name)
	sysDir := filepath.Join(s.Root, systemDir, name)
	inUser := name != systemDir && hasBase(userDir)
	inSystem := hasBase(sysDir)

	var (
		dir   string
		flags model.AppFlags
	)
	switch {
	case inUser && inSystem:
		dir, flags = userDir, model.FlagUpdatedSystem
	case inUser:
		dir, flags = userDir, model.FlagUser
	case inSystem:
		dir, flags = sysDir, model.FlagSystem
	default:
		return model.InstalledApp{}, errutils.ErrNotFoundWithName(packageKind, name)
	}

	base := filepath.Join(dir, baseName)
	info, err := os.Stat(base)
	if err != nil {
		return model.InstalledApp{}, errutils.Wrapf(errutils.Classify(err), "failed to stat %s", base)
	}
	splits, err := doublestar.Glob(os.DirFS(dir), splitGlob, doublestar.WithFilesOnly())
	if err != nil {
		return model.InstalledApp{}, errutils.Wrapf(errutils.ErrIO, "failed to list splits of %s: %v", name, err)
	}
	slices.Sort(splits)

	app := model.InstalledApp{
		PackageName:      name,
		Label:            name,
		Category:         model.CategoryUndefined,
		Flags:            flags,
		FirstInstallTime: info.ModTime(),
		LastUpdateTime:   info.ModTime(),
		SourceDir:        base,
		SizeBytes:        info.Size(),
		Launchable:       true,
	}
	for _, split := range splits {
		p := filepath.Join(dir, split)
		si, err := os.Stat(p)
		if err != nil {
			return model.InstalledApp{}, errutils.Wrapf(errutils.Classify(err), "failed to stat %s", p)
		}
		app.SplitSourceDirs = append(app.SplitSourceDirs, p)
		app.SizeBytes += si.Size()
	}

	if s.Meta != nil {
		s.applyMeta(ctx, &app)
	}
	return app, nil
}

func (s *DirSource) applyMeta(ctx context.Context, app *model.InstalledApp) {
	f, err := os.Open(app.SourceDir)
	if err != nil {
		logger.DebugfWithFields(logger.Fields{"package": app.PackageName, "error": err.Error()}, "Cannot open base archive")
		return
	}
	defer f.Close()

	meta, err := s.Meta.Resolve(ctx, f)
	if err != nil {
		logger.DebugfWithFields(logger.Fields{"package": app.PackageName, "error": err.Error()}, "Cannot read base archive metadata")
		return
	}
	if meta.Label != "" {
		app.Label = meta.Label
	}
	app.VersionName = meta.VersionName
	app.VersionCode = meta.VersionCode
	app.Icon = meta.Icon
}

func packageDirs(dir string, skipSystem bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errutils.ErrNotFoundWithName("directory", dir)
		}
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to read %s", dir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || (skipSystem && e.Name() == systemDir) {
			continue
		}
		if hasBase(filepath.Join(dir, e.Name())) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func hasBase(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, baseName))
	return err == nil && info.Mode().IsRegular()
}
