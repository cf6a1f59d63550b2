package orchestrator

import (
	"strconv"
	"strings"

	"github.com/glorpus-work/apkstash/pkg/model"
)

// Name pattern tokens.
const (
	TokenLabel   = "{label}"
	TokenPackage = "{package}"
	TokenVersion = "{version}"
	TokenCode    = "{code}"
)

var unsafeNameChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// uniqueName returns name, or name with the package appended when an earlier
// app of the same batch already took name+suffix. Names compare
// case-insensitively.
func uniqueName(name, suffix string, app *model.InstalledApp, taken map[string]bool) string {
	key := func(n string) string { return strings.ToLower(n + suffix) }
	candidate := name
	if taken[key(candidate)] {
		candidate = name + "_" + app.PackageName
	}
	base := candidate
	for n := 2; taken[key(candidate)]; n++ {
		candidate = base + "_" + strconv.Itoa(n)
	}
	taken[key(candidate)] = true
	return candidate
}

// DestinationName expands pattern for app into a file name without suffix.
// Characters that are not valid in file names become underscores. An empty
// expansion falls back to the package name.
func DestinationName(pattern string, app *model.InstalledApp) string {
	name := strings.NewReplacer(
		TokenLabel, app.Label,
		TokenPackage, app.PackageName,
		TokenVersion, app.VersionName,
		TokenCode, strconv.FormatInt(app.VersionCode, 10),
	).Replace(pattern)
	name = strings.TrimSpace(unsafeNameChars.Replace(name))
	name = strings.Trim(name, ".")
	if name == "" {
		return app.PackageName
	}
	return name
}
