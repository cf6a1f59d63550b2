package config

import (
	"strconv"
	"strings"

	"github.com/glorpus-work/apkstash/pkg/errutils"
)

// Keys lists the keys accepted by SetValue and GetValue, in display order.
var Keys = []string{
	"save_dir",
	"state_dir",
	"hooks_dir",
	"apk_suffix",
	"bundle_suffix",
	"name_pattern",
	"max_concurrent",
	"swipe_actions.left",
	"swipe_actions.right",
	"adb.path",
	"adb.serial",
	"log_level",
}

// SetValue sets a configuration value by key. The result is not validated;
// call Validate before persisting.
func (c *Config) SetValue(key, value string) error {
	s := &c.Settings
	switch key {
	case "save_dir":
		s.SaveDir = value
	case "state_dir":
		s.StateDir = value
	case "hooks_dir":
		s.HooksDir = value
	case "apk_suffix":
		s.APKSuffix = value
	case "bundle_suffix":
		s.BundleSuffix = value
	case "name_pattern":
		s.NamePattern = value
	case "max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errutils.Wrapf(errutils.ErrInvalidIntValue, "%s: %s", key, value)
		}
		s.MaxConcurrent = n
	case "swipe_actions.left":
		s.SwipeActions.Left = value
	case "swipe_actions.right":
		s.SwipeActions.Right = value
	case "adb.path":
		s.ADB.Path = value
	case "adb.serial":
		s.ADB.Serial = value
	case "log_level":
		s.LogLevel = value
	default:
		return errutils.ErrUnknownConfigKeyWithName(key)
	}
	return nil
}

// GetValue returns the value stored under key as a string.
func (c *Config) GetValue(key string) (string, error) {
	s := c.Settings
	switch key {
	case "save_dir":
		return s.SaveDir, nil
	case "state_dir":
		return s.StateDir, nil
	case "hooks_dir":
		return s.HooksDir, nil
	case "apk_suffix":
		return s.APKSuffix, nil
	case "bundle_suffix":
		return s.BundleSuffix, nil
	case "name_pattern":
		return s.NamePattern, nil
	case "max_concurrent":
		return strconv.Itoa(s.MaxConcurrent), nil
	case "swipe_actions.left":
		return s.SwipeActions.Left, nil
	case "swipe_actions.right":
		return s.SwipeActions.Right, nil
	case "adb.path":
		return s.ADB.Path, nil
	case "adb.serial":
		return s.ADB.Serial, nil
	case "log_level":
		return s.LogLevel, nil
	case "favorites":
		return strings.Join(c.Favorites, ","), nil
	default:
		return "", errutils.ErrUnknownConfigKeyWithName(key)
	}
}

// ToMap returns every key with its value, favorites included.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys)+1)
	for _, key := range Keys {
		v, _ := c.GetValue(key)
		result[key] = v
	}
	result["favorites"] = strings.Join(c.Favorites, ",")
	return result
}
