// Package fsutil holds the file modes, default locations and write helpers
// shared by the config, hooks, catalog and storage packages.
package fsutil

// Modes for files and directories apkstash creates.
const (
	FileModeDefault = 0o644
	DirModeDefault  = 0o755
)
