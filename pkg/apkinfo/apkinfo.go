// Package apkinfo reads owning-app metadata out of package archives.
package apkinfo

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/avast/apkparser"
	"github.com/glorpus-work/apkstash/pkg/archive"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/mholt/archives"
)

// Resolver decodes the binary manifest of an archive and pulls its launcher icon.
type Resolver struct {
	archiver *archive.Manager
}

// NewResolver creates a resolver. archiver may be nil.
func NewResolver(archiver *archive.Manager) *Resolver {
	if archiver == nil {
		archiver = archive.NewManager()
	}
	return &Resolver{archiver: archiver}
}

type manifest struct {
	XMLName     xml.Name    `xml:"manifest"`
	Package     string      `xml:"package,attr"`
	VersionCode string      `xml:"versionCode,attr"`
	VersionName string      `xml:"versionName,attr"`
	UsesSdk     usesSdk     `xml:"uses-sdk"`
	Application application `xml:"application"`
}

type usesSdk struct {
	MinSdkVersion    string `xml:"minSdkVersion,attr"`
	TargetSdkVersion string `xml:"targetSdkVersion,attr"`
}

type application struct {
	Label string `xml:"label,attr"`
	Icon  string `xml:"icon,attr"`
}

// Resolve returns the metadata of the archive in f. Every failure wraps
// errutils.ErrCorruptArchive. A missing or non-bitmap icon is not an error.
func (r *Resolver) Resolve(ctx context.Context, f archives.ReaderAtSeeker) (meta model.ApkMeta, err error) {
	if err := ctx.Err(); err != nil {
		return model.ApkMeta{}, errutils.Classify(err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return model.ApkMeta{}, errutils.Wrap(errutils.Classify(err), "failed to rewind archive")
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: manifest decoder panicked: %v", errutils.ErrCorruptArchive, p)
		}
	}()

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	zipErr, resErr, manErr := apkparser.ParseApkReader(f, enc)
	switch {
	case zipErr != nil:
		return model.ApkMeta{}, fmt.Errorf("%w: failed to unzip: %w", errutils.ErrCorruptArchive, zipErr)
	case manErr != nil:
		return model.ApkMeta{}, fmt.Errorf("%w: failed to parse AndroidManifest.xml: %w", errutils.ErrCorruptArchive, manErr)
	}
	if err := enc.Flush(); err != nil {
		return model.ApkMeta{}, fmt.Errorf("%w: failed to encode manifest: %w", errutils.ErrCorruptArchive, err)
	}

	m, err := decodeManifest(buf.Bytes())
	if err != nil {
		return model.ApkMeta{}, err
	}
	meta = m.meta()
	// without a resource table labels stay as raw @string references
	if resErr != nil && strings.HasPrefix(meta.Label, "@") {
		meta.Label = ""
	}

	if icon := m.Application.Icon; isBitmap(icon) {
		data, iconErr := r.archiver.ReadFile(ctx, f, strings.TrimPrefix(icon, "/"))
		if iconErr == nil {
			meta.Icon = data
		}
	}
	if err := ctx.Err(); err != nil {
		return model.ApkMeta{}, errutils.Classify(err)
	}
	return meta, nil
}

func decodeManifest(data []byte) (*manifest, error) {
	var m manifest
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal manifest: %w", errutils.ErrCorruptArchive, err)
	}
	if m.Package == "" {
		return nil, fmt.Errorf("%w: manifest has no package name", errutils.ErrCorruptArchive)
	}
	return &m, nil
}

func (m *manifest) meta() model.ApkMeta {
	code, _ := strconv.ParseInt(strings.TrimSpace(m.VersionCode), 10, 64)
	return model.ApkMeta{
		PackageName:      m.Package,
		Label:            m.Application.Label,
		VersionName:      m.VersionName,
		VersionCode:      code,
		MinSdkVersion:    atoi(m.UsesSdk.MinSdkVersion),
		TargetSdkVersion: atoi(m.UsesSdk.TargetSdkVersion),
	}
}

// atoi returns 0 for preview codenames and other non-numeric levels.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func isBitmap(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".webp", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
