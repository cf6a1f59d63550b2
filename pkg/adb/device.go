package adb

import (
	"context"
	"io"
	"strings"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/extract"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/registry"
)

// Device is one connected Android device. It enumerates installed packages
// for the registry and streams their archives for the extraction engine.
type Device struct {
	runner Runner
}

var (
	_ registry.PackageSource = (*Device)(nil)
	_ extract.Source         = (*Device)(nil)
)

// NewDevice talks to serial through the adb binary at path.
func NewDevice(path, serial string) *Device {
	return &Device{runner: &ExecRunner{Path: path, Serial: serial}}
}

// NewDeviceWithRunner wraps an existing runner.
func NewDeviceWithRunner(r Runner) *Device {
	return &Device{runner: r}
}

func (d *Device) shell(ctx context.Context, command ...string) (string, error) {
	out, err := d.runner.Run(ctx, append([]string{"shell"}, command...)...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// List returns the names of every installed package.
func (d *Device) List(ctx context.Context) ([]string, error) {
	out, err := d.shell(ctx, "pm", "list", "packages", "-f", "-U", "-i")
	if err != nil {
		return nil, errutils.Wrap(err, "failed to list packages")
	}
	return parsePackageList(out), nil
}

// Get snapshots one package from dumpsys, pm path and stat. The label is the
// package name; the platform does not expose localized labels over adb.
func (d *Device) Get(ctx context.Context, name string) (model.InstalledApp, error) {
	out, err := d.shell(ctx, "dumpsys", "package", shellQuote(name))
	if err != nil {
		return model.InstalledApp{}, errutils.Wrapf(err, "failed to inspect %s", name)
	}
	dump, ok := parseDumpsys(name, out)
	if !ok {
		return model.InstalledApp{}, errutils.ErrNotFoundWithName("package", name)
	}

	out, err = d.shell(ctx, "pm", "path", shellQuote(name))
	if err != nil {
		return model.InstalledApp{}, errutils.Wrapf(err, "failed to resolve paths of %s", name)
	}
	base, splits := parsePmPath(out)
	if base == "" {
		return model.InstalledApp{}, errutils.ErrNotFoundWithName("package archive", name)
	}

	app := model.InstalledApp{
		PackageName:      name,
		Label:            name,
		VersionName:      dump.VersionName,
		VersionCode:      dump.VersionCode,
		Category:         dump.Category,
		Flags:            model.FlagUser,
		FirstInstallTime: dump.FirstInstallTime,
		LastUpdateTime:   dump.LastUpdateTime,
		SourceDir:        base,
		SplitSourceDirs:  splits,
		Launchable:       dump.Launchable,
	}
	switch {
	case dump.UpdatedSystem:
		app.Flags = model.FlagUpdatedSystem
	case dump.System:
		app.Flags = model.FlagSystem
	}
	if dump.Installer != "" {
		app.InstallerLabel = installerLabel(dump.Installer)
	}

	size, err := d.totalSize(ctx, app.SourcePaths())
	if err != nil {
		return model.InstalledApp{}, errutils.Wrapf(err, "failed to size %s", name)
	}
	app.SizeBytes = size
	return app, nil
}

func (d *Device) totalSize(ctx context.Context, paths []string) (int64, error) {
	args := []string{"stat", "-c", "%s"}
	for _, p := range paths {
		args = append(args, shellQuote(p))
	}
	out, err := d.shell(ctx, args...)
	if err != nil {
		return 0, err
	}
	sizes := parseSizes(out)
	if len(sizes) != len(paths) {
		return 0, errutils.Wrapf(errutils.ErrIO, "stat reported %d sizes for %d files", len(sizes), len(paths))
	}
	var total int64
	for _, n := range sizes {
		total += n
	}
	return total, nil
}

// Stat returns the size and modification time of a file on the device.
func (d *Device) Stat(ctx context.Context, path string) (extract.SourceInfo, error) {
	out, err := d.shell(ctx, "stat", "-c", "%s:%Y", shellQuote(path))
	if err != nil {
		return extract.SourceInfo{}, errutils.Wrapf(err, "failed to stat %s", path)
	}
	size, mod, ok := parseStat(out)
	if !ok {
		return extract.SourceInfo{}, errutils.Wrapf(errutils.ErrIO, "unexpected stat output for %s: %q", path, strings.TrimSpace(out))
	}
	return extract.SourceInfo{Size: size, ModTime: mod}, nil
}

// Open streams a file off the device.
func (d *Device) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := d.runner.Stream(ctx, "exec-out", "cat", shellQuote(path))
	if err != nil {
		return nil, errutils.Wrapf(err, "failed to open %s", path)
	}
	return rc, nil
}
