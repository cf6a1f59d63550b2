package filter

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey names an ordering.
type SortKey string

const (
	ByName        SortKey = "name"
	BySize        SortKey = "size"
	ByInstallDate SortKey = "installed"
	ByUpdateDate  SortKey = "updated"
	ByVersion     SortKey = "version"
)

// SortKeys lists the supported keys.
var SortKeys = []SortKey{ByName, BySize, ByInstallDate, ByUpdateDate, ByVersion}

// Comparator orders two apps like cmp.Compare.
type Comparator func(a, b *model.InstalledApp) int

// ParseSortKey validates a CLI sort key.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sort key %q", errutils.ErrValidation, s)
}

// Compare returns the comparator for key. Ties fall back to package name so
// results are deterministic.
func Compare(key SortKey) Comparator {
	var primary Comparator
	switch key {
	case BySize:
		primary = func(a, b *model.InstalledApp) int { return cmp.Compare(a.SizeBytes, b.SizeBytes) }
	case ByInstallDate:
		primary = func(a, b *model.InstalledApp) int { return a.FirstInstallTime.Compare(b.FirstInstallTime) }
	case ByUpdateDate:
		primary = func(a, b *model.InstalledApp) int { return a.LastUpdateTime.Compare(b.LastUpdateTime) }
	case ByVersion:
		primary = compareVersion
	default:
		primary = nameComparator(language.English)
	}
	return func(a, b *model.InstalledApp) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.PackageName, b.PackageName)
	}
}

// nameComparator orders labels with locale-aware, case-insensitive collation.
// A collate.Collator keeps internal buffers, so it is guarded.
func nameComparator(tag language.Tag) Comparator {
	var mu sync.Mutex
	coll := collate.New(tag, collate.IgnoreCase, collate.Loose)
	return func(a, b *model.InstalledApp) int {
		mu.Lock()
		defer mu.Unlock()
		return coll.CompareString(a.Label, b.Label)
	}
}

// compareVersion compares parsed version names and falls back to version
// codes when either name is not a valid version.
func compareVersion(a, b *model.InstalledApp) int {
	va, vb := a.ParsedVersion(), b.ParsedVersion()
	if va != nil && vb != nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.VersionCode, b.VersionCode)
}

// Sort returns a sorted copy of apps.
func Sort(apps []model.InstalledApp, key SortKey, descending bool) []model.InstalledApp {
	out := slices.Clone(apps)
	compare := Compare(key)
	slices.SortStableFunc(out, func(a, b model.InstalledApp) int {
		if descending {
			return compare(&b, &a)
		}
		return compare(&a, &b)
	})
	return out
}
