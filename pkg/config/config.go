// Package config provides configuration management for apkstash.
// It handles loading, validating and saving the YAML settings file, applies
// environment overrides, and exposes the live settings to the rest of the
// module through Store.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/fsutil"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Favorites lists the package names pinned to the top of the app list.
	Favorites []string `yaml:"favorites"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Where extracted archives go, and where the catalog looks for them.
	SaveDir string `yaml:"save_dir"`

	// State settings
	StateDir string `yaml:"state_dir,omitempty"`
	HooksDir string `yaml:"hooks_dir,omitempty"`

	// Extraction settings
	APKSuffix     string `yaml:"apk_suffix"`
	BundleSuffix  string `yaml:"bundle_suffix"`
	NamePattern   string `yaml:"name_pattern"`
	MaxConcurrent int    `yaml:"max_concurrent"`

	SwipeActions SwipeActions `yaml:"swipe_actions"`
	ADB          ADBConfig    `yaml:"adb"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// SwipeActions maps list gestures onto actions.
type SwipeActions struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// ADBConfig locates the adb binary and the device to talk to.
type ADBConfig struct {
	Path   string `yaml:"path"`
	Serial string `yaml:"serial,omitempty"`
}

// Swipe actions.
const (
	ActionNone      = "none"
	ActionSave      = "save"
	ActionShare     = "share"
	ActionDelete    = "delete"
	ActionInstall   = "install"
	ActionUninstall = "uninstall"
	ActionFavorite  = "favorite"
)

// SwipeActionValues lists every accepted swipe action.
var SwipeActionValues = []string{
	ActionNone, ActionSave, ActionShare, ActionDelete, ActionInstall, ActionUninstall, ActionFavorite,
}

// Default configuration values.
const (
	DefaultAPKSuffix     = ".apk"
	DefaultBundleSuffix  = ".xapk"
	DefaultNamePattern   = "{label}_{version}"
	DefaultMaxConcurrent = 2
	DefaultADBPath       = "adb"
	DefaultLogLevel      = "info"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "APKSTASH"
)

// envOverrides are read from APKSTASH_* variables. Empty values leave the
// file setting in place.
type envOverrides struct {
	SaveDir   string `envconfig:"SAVE_DIR"`
	StateDir  string `envconfig:"STATE_DIR"`
	LogLevel  string `envconfig:"LOG_LEVEL"`
	ADBSerial string `envconfig:"ADB_SERIAL"`
	ADBPath   string `envconfig:"ADB_PATH"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	saveDir, err := fsutil.GetDefaultSaveDir()
	if err != nil {
		saveDir = "APKs"
	}
	stateDir, err := fsutil.GetDataDir()
	if err != nil {
		stateDir = filepath.Join(os.TempDir(), fsutil.AppName)
	}
	hooksDir, err := fsutil.GetHooksDir()
	if err != nil {
		hooksDir = filepath.Join(stateDir, "hooks")
	}

	return &Config{
		Favorites: []string{},
		Settings: Settings{
			SaveDir:       saveDir,
			StateDir:      stateDir,
			HooksDir:      hooksDir,
			APKSuffix:     DefaultAPKSuffix,
			BundleSuffix:  DefaultBundleSuffix,
			NamePattern:   DefaultNamePattern,
			MaxConcurrent: DefaultMaxConcurrent,
			SwipeActions:  SwipeActions{Left: ActionSave, Right: ActionFavorite},
			ADB:           ADBConfig{Path: DefaultADBPath},
			LogLevel:      DefaultLogLevel,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errutils.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errutils.ErrConfigValidation, err)
	}

	return &config, nil
}

// SaveConfig writes the configuration to path through a temporary file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errutils.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errutils.Wrap(errutils.ErrInvalidConfigPath, err.Error())
	}

	return fsutil.WriteFileAtomic(absPath, fsutil.FileModeDefault, func(w io.Writer) error {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(YAMLIndent)
		if err := encoder.Encode(c); err != nil {
			return errutils.Wrap(errutils.ErrConfigEncode, err.Error())
		}
		return encoder.Close()
	})
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Favorites = slices.Clone(c.Favorites)
	return &out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errutils.ErrConfigValidation
	}
	return validateSettings(c.Settings)
}

func validateSettings(s Settings) error {
	if strings.TrimSpace(s.SaveDir) == "" {
		return errutils.ErrEmptySaveDir
	}
	if s.MaxConcurrent < 1 {
		return errutils.ErrMaxConcurrentInvalid
	}
	for _, suffix := range []string{s.APKSuffix, s.BundleSuffix} {
		if !strings.HasPrefix(suffix, ".") || strings.ContainsAny(suffix, `/\`) {
			return fmt.Errorf("%w: '%s'", errutils.ErrInvalidSuffix, suffix)
		}
	}
	if strings.ContainsAny(s.NamePattern, `/\`) {
		return fmt.Errorf("%w: name_pattern must not contain path separators", errutils.ErrValidation)
	}
	if !slices.Contains(SwipeActionValues, s.SwipeActions.Left) {
		return errutils.ErrInvalidSwipeActionWithDetails("left", s.SwipeActions.Left, SwipeActionValues)
	}
	if !slices.Contains(SwipeActionValues, s.SwipeActions.Right) {
		return errutils.ErrInvalidSwipeActionWithDetails("right", s.SwipeActions.Right, SwipeActionValues)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errutils.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Favorites == nil {
		c.Favorites = []string{}
	}
	if c.Settings.SaveDir == "" {
		c.Settings.SaveDir = defaults.Settings.SaveDir
	}
	if c.Settings.StateDir == "" {
		c.Settings.StateDir = defaults.Settings.StateDir
	}
	if c.Settings.HooksDir == "" {
		c.Settings.HooksDir = defaults.Settings.HooksDir
	}
	if c.Settings.APKSuffix == "" {
		c.Settings.APKSuffix = defaults.Settings.APKSuffix
	}
	if c.Settings.BundleSuffix == "" {
		c.Settings.BundleSuffix = defaults.Settings.BundleSuffix
	}
	if c.Settings.NamePattern == "" {
		c.Settings.NamePattern = defaults.Settings.NamePattern
	}
	if c.Settings.MaxConcurrent == 0 {
		c.Settings.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if c.Settings.SwipeActions.Left == "" {
		c.Settings.SwipeActions.Left = defaults.Settings.SwipeActions.Left
	}
	if c.Settings.SwipeActions.Right == "" {
		c.Settings.SwipeActions.Right = defaults.Settings.SwipeActions.Right
	}
	if c.Settings.ADB.Path == "" {
		c.Settings.ADB.Path = defaults.Settings.ADB.Path
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}

// WithEnv returns a copy of c with APKSTASH_* environment overrides applied.
func (c *Config) WithEnv() (*Config, error) {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, errutils.Wrap(errutils.ErrConfigEnv, err.Error())
	}

	out := c.Clone()
	if env.SaveDir != "" {
		out.Settings.SaveDir = env.SaveDir
	}
	if env.StateDir != "" {
		out.Settings.StateDir = env.StateDir
	}
	if env.LogLevel != "" {
		out.Settings.LogLevel = env.LogLevel
	}
	if env.ADBSerial != "" {
		out.Settings.ADB.Serial = env.ADBSerial
	}
	if env.ADBPath != "" {
		out.Settings.ADB.Path = env.ADBPath
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errutils.ErrConfigValidation, err)
	}
	return out, nil
}

// IsFavorite reports whether pkg is pinned.
func (c *Config) IsFavorite(pkg string) bool {
	return slices.Contains(c.Favorites, pkg)
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
