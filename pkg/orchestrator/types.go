//go:generate mockgen -destination=./mocks/orchestrator.go . Extractor,ArchiveCatalog,AppRegistry

package orchestrator

import (
	"context"

	"github.com/glorpus-work/apkstash/pkg/config"
	"github.com/glorpus-work/apkstash/pkg/events"
	"github.com/glorpus-work/apkstash/pkg/extract"
	"github.com/glorpus-work/apkstash/pkg/model"
	"github.com/glorpus-work/apkstash/pkg/registry"
)

// Extractor is the subset of the extraction engine used by the orchestrator.
type Extractor interface {
	Save(ctx context.Context, req extract.Request) (extract.Result, error)
}

// ArchiveCatalog is the subset of the archive catalog used by the orchestrator.
type ArchiveCatalog interface {
	Track(ctx context.Context, uri string) (model.ArchiveFile, error)
	RemoveApk(ctx context.Context, uri string) error
}

// AppRegistry is the subset of the installed app registry used by the orchestrator.
type AppRegistry interface {
	Add(app model.InstalledApp) registry.Snapshot
	Remove(name string) registry.Snapshot
	SetFavorite(name string, favorite bool) bool
	Snapshot() registry.Snapshot
}

// SettingsSource provides the current settings. It is read once per operation.
type SettingsSource interface {
	Settings() config.Settings
	Favorites() []string
	ToggleFavorite(pkg string) (bool, error)
}

// Emitter publishes lifecycle events.
type Emitter interface {
	Emit(e events.Event)
}

// Phases reported through Hooks.OnEvent.
const (
	PhaseSaving     = "saving"
	PhaseEntry      = "entry"
	PhaseSaved      = "saved"
	PhaseDeleted    = "deleted"
	PhaseInstalling = "installing"
	PhaseError      = "error"
	PhaseDone       = "done"
)

// Event represents a simple progress notification.
type Event struct {
	Phase   string
	ID      string // package name or archive URI
	Msg     string
	Percent int
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// SaveOptions control SaveApps execution.
type SaveOptions struct {
	// Concurrency bounds parallel extractions; 0 uses the max_concurrent setting.
	Concurrency int
	// DryRun reports the destination names without writing anything.
	DryRun bool
}

// SaveOutcome is the result of saving one app. Err is nil on success.
type SaveOutcome struct {
	Package string
	Name    string
	Result  extract.Result
	File    *model.ArchiveFile
	Err     error
}
