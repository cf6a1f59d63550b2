// Package filter holds the presentation-time predicates and orderings over
// registry snapshots. Everything here is stateless and never mutates its input.
package filter

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/model"
)

// Kind selects which predicate a Filter evaluates.
type Kind int

const (
	KindAll Kind = iota
	KindCategory
	KindInstaller
	KindFavorite
	KindSystem
	KindUser
	KindPackage
	KindLaunchable
)

// Filter is a tagged variant: only the parameter belonging to Kind is read.
type Filter struct {
	Kind      Kind
	Category  model.Category
	Installer string
	Pattern   string
}

// All matches every app.
func All() Filter { return Filter{Kind: KindAll} }

// Category matches apps of category c.
func Category(c model.Category) Filter { return Filter{Kind: KindCategory, Category: c} }

// Installer matches apps whose installer label equals label, ignoring case.
func Installer(label string) Filter { return Filter{Kind: KindInstaller, Installer: label} }

// Favorite matches apps the user marked as favorite.
func Favorite() Filter { return Filter{Kind: KindFavorite} }

// System matches preinstalled apps, updated ones included.
func System() Filter { return Filter{Kind: KindSystem} }

// User matches apps that are not system apps.
func User() Filter { return Filter{Kind: KindUser} }

// Package matches package names against a doublestar glob.
func Package(pattern string) Filter { return Filter{Kind: KindPackage, Pattern: pattern} }

// Launchable matches apps with a launcher entry.
func Launchable() Filter { return Filter{Kind: KindLaunchable} }

// Match evaluates f against app.
func Match(f Filter, app *model.InstalledApp) bool {
	switch f.Kind {
	case KindAll:
		return true
	case KindCategory:
		return app.Category == f.Category
	case KindInstaller:
		return strings.EqualFold(app.InstallerLabel, f.Installer)
	case KindFavorite:
		return app.Favorite
	case KindSystem:
		return app.IsSystem()
	case KindUser:
		return !app.IsSystem()
	case KindPackage:
		ok, err := doublestar.Match(f.Pattern, app.PackageName)
		return err == nil && ok
	case KindLaunchable:
		return app.Launchable
	default:
		return false
	}
}

// Apply returns the apps matching every filter, as a new slice.
func Apply(apps []model.InstalledApp, filters ...Filter) []model.InstalledApp {
	out := make([]model.InstalledApp, 0, len(apps))
	for i := range apps {
		if matchAll(filters, &apps[i]) {
			out = append(out, apps[i])
		}
	}
	return out
}

func matchAll(filters []Filter, app *model.InstalledApp) bool {
	for _, f := range filters {
		if !Match(f, app) {
			return false
		}
	}
	return true
}

// Installers returns the distinct installer labels in apps, in first-seen order.
func Installers(apps []model.InstalledApp) []string {
	seen := map[string]bool{}
	var labels []string
	for _, app := range apps {
		if app.InstallerLabel == "" || seen[app.InstallerLabel] {
			continue
		}
		seen[app.InstallerLabel] = true
		labels = append(labels, app.InstallerLabel)
	}
	return labels
}

// Parse reads the CLI form of a filter: all, favorite, system, user,
// launchable, category:<name>, installer:<label>, package:<glob>.
func Parse(s string) (Filter, error) {
	name, arg, hasArg := strings.Cut(s, ":")
	switch strings.ToLower(name) {
	case "all":
		return All(), nil
	case "favorite", "favorites":
		return Favorite(), nil
	case "system":
		return System(), nil
	case "user":
		return User(), nil
	case "launchable":
		return Launchable(), nil
	case "category":
		for _, c := range model.Categories {
			if strings.EqualFold(string(c), arg) {
				return Category(c), nil
			}
		}
		return Filter{}, fmt.Errorf("%w: unknown category %q", errutils.ErrValidation, arg)
	case "installer":
		if !hasArg || arg == "" {
			return Filter{}, fmt.Errorf("%w: installer filter needs a label", errutils.ErrValidation)
		}
		return Installer(arg), nil
	case "package":
		if !doublestar.ValidatePattern(arg) || arg == "" {
			return Filter{}, fmt.Errorf("%w: invalid package pattern %q", errutils.ErrValidation, arg)
		}
		return Package(arg), nil
	default:
		return Filter{}, fmt.Errorf("%w: unknown filter %q", errutils.ErrValidation, s)
	}
}
