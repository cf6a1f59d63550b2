package model

import "time"

// MIME types handled by the save directory.
const (
	MimeTypeAPK    = "application/vnd.android.package-archive"
	MimeTypeBundle = "application/zip"
)

// ApkMeta is the owning-app metadata read out of an archive.
type ApkMeta struct {
	PackageName      string
	Label            string
	VersionName      string
	VersionCode      int64
	MinSdkVersion    int
	TargetSdkVersion int
	Icon             []byte
}

// ArchiveFile is one row of the saved archive catalog. FileURI is the only
// identity; a row with Loaded unset is valid and shows filesystem data only.
type ArchiveFile struct {
	FileURI          string    `json:"file_uri"`
	FileName         string    `json:"file_name"`
	FileType         string    `json:"file_type"`
	FileLastModified time.Time `json:"file_last_modified"`
	FileSize         int64     `json:"file_size"`

	AppName             *string `json:"app_name,omitempty"`
	AppPackageName      *string `json:"app_package_name,omitempty"`
	AppIcon             []byte  `json:"-"`
	AppVersionName      *string `json:"app_version_name,omitempty"`
	AppVersionCode      *int64  `json:"app_version_code,omitempty"`
	AppMinSdkVersion    *int    `json:"app_min_sdk_version,omitempty"`
	AppTargetSdkVersion *int    `json:"app_target_sdk_version,omitempty"`

	Loaded bool `json:"loaded"`
}

// SameContent reports whether f and other describe the same file state on disk.
func (f *ArchiveFile) SameContent(other *ArchiveFile) bool {
	return f.FileSize == other.FileSize && f.FileLastModified.Equal(other.FileLastModified)
}

// WithMeta returns a copy of f carrying meta and marked loaded.
func (f ArchiveFile) WithMeta(meta ApkMeta) ArchiveFile {
	f.AppName = &meta.Label
	f.AppPackageName = &meta.PackageName
	f.AppIcon = meta.Icon
	f.AppVersionName = &meta.VersionName
	f.AppVersionCode = &meta.VersionCode
	f.AppMinSdkVersion = &meta.MinSdkVersion
	f.AppTargetSdkVersion = &meta.TargetSdkVersion
	f.Loaded = true
	return f
}

// DisplayName prefers the resolved app label over the file name.
func (f *ArchiveFile) DisplayName() string {
	if f.AppName != nil && *f.AppName != "" {
		return *f.AppName
	}
	return f.FileName
}
