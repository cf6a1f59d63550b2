package adb

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/apkstash/pkg/model"
)

const packagePrefix = "package:"

var (
	reCodePath    = regexp.MustCompile(`codePath=([^\s]+)`)
	reVerCode     = regexp.MustCompile(`versionCode=(\d+)`)
	reVerName     = regexp.MustCompile(`versionName=([^\s]+)`)
	reFirstIn     = regexp.MustCompile(`firstInstallTime=(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)
	reLastUpd     = regexp.MustCompile(`lastUpdateTime=(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)
	reInstaller   = regexp.MustCompile(`installerPackageName=([^\s]+)`)
	reCategory    = regexp.MustCompile(`\bcategory=(-?\d+)`)
	rePkgFlags    = regexp.MustCompile(`pkgFlags=\[([^\]]*)\]`)
	reLauncherCat = regexp.MustCompile(`android\.intent\.category\.LAUNCHER`)
)

// dumpsysTimeLayout is the timestamp format of dumpsys package.
const dumpsysTimeLayout = "2006-01-02 15:04:05"

// installerLabels names the common store installers.
var installerLabels = map[string]string{
	"com.android.vending":                 "Google Play Store",
	"org.fdroid.fdroid":                   "F-Droid",
	"com.aurora.store":                    "Aurora Store",
	"com.amazon.venezia":                  "Amazon Appstore",
	"com.sec.android.app.samsungapps":     "Galaxy Store",
	"com.huawei.appmarket":                "AppGallery",
	"com.google.android.packageinstaller": "Package installer",
	"com.android.packageinstaller":        "Package installer",
	"com.android.shell":                   "adb",
}

// parsePackageList reads "pm list packages" output. Lines carrying a path
// ("package:/data/app/.../base.apk=com.example") keep only the name.
func parsePackageList(out string) []string {
	var pkgs []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		ln := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(ln, packagePrefix) {
			continue
		}
		ln = strings.TrimPrefix(ln, packagePrefix)
		// -U and -i append " uid:..." and " installer=..."
		if sp := strings.IndexByte(ln, ' '); sp >= 0 {
			ln = ln[:sp]
		}
		if eq := strings.LastIndex(ln, "="); eq >= 0 {
			ln = ln[eq+1:]
		}
		if ln != "" {
			pkgs = append(pkgs, ln)
		}
	}
	return pkgs
}

// parsePmPath reads "pm path" output into the base archive and its splits.
func parsePmPath(out string) (base string, splits []string) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		ln := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(ln, packagePrefix) {
			continue
		}
		p := strings.TrimPrefix(ln, packagePrefix)
		switch {
		case p == "":
		case base == "" && strings.HasSuffix(p, "/base.apk"):
			base = p
		default:
			splits = append(splits, p)
		}
	}
	if base == "" && len(splits) > 0 {
		base, splits = splits[0], splits[1:]
	}
	return base, splits
}

// packageDump is what dumpsys package reports about one package.
type packageDump struct {
	CodePath         string
	VersionName      string
	VersionCode      int64
	FirstInstallTime time.Time
	LastUpdateTime   time.Time
	Installer        string
	Category         model.Category
	System           bool
	UpdatedSystem    bool
	Launchable       bool
}

// parseDumpsys extracts the section of dumpsys package output that belongs
// to name. It reports false when the package is not listed.
func parseDumpsys(name, out string) (packageDump, bool) {
	header := "Package [" + name + "]"
	start := strings.Index(out, header)
	if start < 0 {
		return packageDump{}, false
	}
	section := out[start:]
	// the next package block starts another section
	if next := strings.Index(section[len(header):], "Package ["); next >= 0 {
		section = section[:len(header)+next]
	}

	var d packageDump
	if m := reCodePath.FindStringSubmatch(section); m != nil {
		d.CodePath = m[1]
	}
	if m := reVerName.FindStringSubmatch(section); m != nil {
		d.VersionName = m[1]
	}
	if m := reVerCode.FindStringSubmatch(section); m != nil {
		d.VersionCode, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if m := reFirstIn.FindStringSubmatch(section); m != nil {
		d.FirstInstallTime, _ = time.ParseInLocation(dumpsysTimeLayout, m[1], time.Local)
	}
	if m := reLastUpd.FindStringSubmatch(section); m != nil {
		d.LastUpdateTime, _ = time.ParseInLocation(dumpsysTimeLayout, m[1], time.Local)
	}
	if m := reInstaller.FindStringSubmatch(section); m != nil && m[1] != "null" {
		d.Installer = m[1]
	}
	d.Category = model.CategoryUndefined
	if m := reCategory.FindStringSubmatch(section); m != nil {
		if code, err := strconv.Atoi(m[1]); err == nil {
			d.Category = model.ParseCategory(code)
		}
	}
	if m := rePkgFlags.FindStringSubmatch(section); m != nil {
		for _, f := range strings.Fields(m[1]) {
			switch f {
			case "SYSTEM":
				d.System = true
			case "UPDATED_SYSTEM_APP":
				d.UpdatedSystem = true
			}
		}
	}
	// launcher activities are listed in the resolver table above the package block
	d.Launchable = reLauncherCat.MatchString(out[:start])
	return d, true
}

// parseSizes reads one "stat -c %s" value per line.
func parseSizes(out string) []int64 {
	var sizes []int64
	for _, f := range strings.Fields(out) {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		sizes = append(sizes, n)
	}
	return sizes
}

// parseStat reads "stat -c %s:%Y" output.
func parseStat(out string) (size int64, mod time.Time, ok bool) {
	sizeStr, secStr, found := strings.Cut(strings.TrimSpace(out), ":")
	if !found {
		return 0, time.Time{}, false
	}
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	return size, time.Unix(sec, 0), true
}

// installerLabel maps an installer package onto a display name.
func installerLabel(pkg string) string {
	if label, ok := installerLabels[pkg]; ok {
		return label
	}
	return pkg
}
