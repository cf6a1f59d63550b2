// Package model provides the records shared by the registry, the catalog and
// the extraction engine.
package model

import (
	"time"

	"github.com/hashicorp/go-version"
)

// Category is the platform-declared application category.
type Category string

// Categories reported by the package manager.
const (
	CategoryUndefined     Category = "undefined"
	CategoryGame          Category = "game"
	CategoryAudio         Category = "audio"
	CategoryVideo         Category = "video"
	CategoryImage         Category = "image"
	CategorySocial        Category = "social"
	CategoryNews          Category = "news"
	CategoryMaps          Category = "maps"
	CategoryProductivity  Category = "productivity"
	CategoryAccessibility Category = "accessibility"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryGame, CategoryAudio, CategoryVideo, CategoryImage, CategorySocial,
	CategoryNews, CategoryMaps, CategoryProductivity, CategoryAccessibility, CategoryUndefined,
}

// ParseCategory maps the numeric ApplicationInfo.category value onto a Category.
func ParseCategory(code int) Category {
	switch code {
	case 0:
		return CategoryGame
	case 1:
		return CategoryAudio
	case 2:
		return CategoryVideo
	case 3:
		return CategoryImage
	case 4:
		return CategorySocial
	case 5:
		return CategoryNews
	case 6:
		return CategoryMaps
	case 7:
		return CategoryProductivity
	case 8:
		return CategoryAccessibility
	default:
		return CategoryUndefined
	}
}

// AppFlags describes where an application is installed.
type AppFlags uint8

const (
	FlagUser AppFlags = 1 << iota
	FlagSystem
	FlagUpdatedSystem
)

// BytesPerMB is the divisor used for InstalledApp.Size.
const BytesPerMB = 1024 * 1024

// InstalledApp is an immutable snapshot of one installed package, taken at
// enumeration time. Refresh replaces it wholesale.
type InstalledApp struct {
	PackageName      string    `json:"package_name"`
	Label            string    `json:"label"`
	VersionName      string    `json:"version_name"`
	VersionCode      int64     `json:"version_code"`
	Category         Category  `json:"category"`
	Flags            AppFlags  `json:"flags"`
	Icon             []byte    `json:"-"`
	FirstInstallTime time.Time `json:"first_install_time"`
	LastUpdateTime   time.Time `json:"last_update_time"`
	SourceDir        string    `json:"source_dir"`
	SplitSourceDirs  []string  `json:"split_source_dirs,omitempty"`
	SizeBytes        int64     `json:"size_bytes"`
	Favorite         bool      `json:"favorite"`
	Checked          bool      `json:"-"`
	Launchable       bool      `json:"launchable"`
	InstallerLabel   string    `json:"installer_label,omitempty"`
}

// IsSystem reports whether the package is part of the system image.
func (a *InstalledApp) IsSystem() bool {
	return a.Flags&(FlagSystem|FlagUpdatedSystem) != 0
}

// IsSplit reports whether the package ships split archives next to its base.
func (a *InstalledApp) IsSplit() bool {
	return len(a.SplitSourceDirs) > 0
}

// SourcePaths returns the base archive followed by every split, in install order.
func (a *InstalledApp) SourcePaths() []string {
	paths := make([]string, 0, 1+len(a.SplitSourceDirs))
	paths = append(paths, a.SourceDir)
	return append(paths, a.SplitSourceDirs...)
}

// Size returns the summed size of base and splits in MB.
func (a *InstalledApp) Size() float64 {
	return float64(a.SizeBytes) / BytesPerMB
}

// ParsedVersion returns the version name as a semantic version, or nil when
// it does not parse.
func (a *InstalledApp) ParsedVersion() *version.Version {
	v, err := version.NewVersion(a.VersionName)
	if err != nil {
		return nil
	}
	return v
}

// WithFavorite returns a copy of a with the favorite flag set.
func (a InstalledApp) WithFavorite(favorite bool) InstalledApp {
	a.Favorite = favorite
	return a
}
