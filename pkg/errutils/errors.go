// Package errutils holds the error values shared across apkstash.
//
// Errors fall into a small taxonomy (permission, I/O, not-found, corrupt
// archive, partial failure) that callers test with errors.Is. Wrap and Wrapf
// add context while keeping the sentinel reachable.
package errutils

import (
	"fmt"
)

// Taxonomy errors. Every failure surfaced by the core wraps one of these.
var (
	// ErrPermission means the save directory or a source file is no longer accessible.
	ErrPermission = fmt.Errorf("permission denied")

	// ErrIO covers read and write failures that are not more specific.
	ErrIO = fmt.Errorf("i/o error")

	// ErrNotFound means the package or file disappeared.
	ErrNotFound = fmt.Errorf("not found")

	// ErrCorruptArchive is returned when an archive cannot be parsed for metadata.
	ErrCorruptArchive = fmt.Errorf("corrupt archive")

	// ErrPartialFailure is returned by batch operations where some items failed.
	ErrPartialFailure = fmt.Errorf("partial failure")

	ErrInsufficientSpace = fmt.Errorf("insufficient space")
	ErrSourceUnreadable  = fmt.Errorf("source unreadable")
	ErrDestinationWrite  = fmt.Errorf("destination write error")
	ErrCanceled          = fmt.Errorf("operation canceled")

	// ErrValidation is returned for malformed input.
	ErrValidation = fmt.Errorf("validation failed")

	// ErrAlreadyExists is returned when a destination or row already exists.
	ErrAlreadyExists = fmt.Errorf("resource already exists")
)

// Config errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")
	ErrConfigEnv         = fmt.Errorf("failed to read environment overrides")

	// ErrConfigFileExists is returned by config init when a file is already present.
	ErrConfigFileExists = fmt.Errorf("configuration file already exists (use --force to overwrite)")

	ErrEmptySaveDir         = fmt.Errorf("save_dir cannot be empty")
	ErrMaxConcurrentInvalid = fmt.Errorf("max_concurrent must be at least 1")
	ErrInvalidLogLevel      = fmt.Errorf("invalid log level")
	ErrInvalidSwipeAction   = fmt.Errorf("invalid swipe action")
	ErrInvalidSuffix        = fmt.Errorf("suffix must start with a dot")
	ErrInvalidBoolValue     = fmt.Errorf("invalid boolean value")
	ErrInvalidIntValue      = fmt.Errorf("invalid integer value")
	ErrUnknownConfigKey     = fmt.Errorf("unknown configuration key")
)

// Hook errors.
var (
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context. It returns nil when err is nil.
//
// Example:
//
//	if err := tree.Delete(ctx, uri); err != nil {
//	    return errutils.Wrap(err, "failed to remove archive")
//	}
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails names the rejected level and the accepted ones.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidSwipeActionWithDetails names the rejected action and the accepted ones.
func ErrInvalidSwipeActionWithDetails(side, action string, valid []string) error {
	return fmt.Errorf("%w: %s='%s', must be one of: %v", ErrInvalidSwipeAction, side, action, valid)
}

// ErrUnknownConfigKeyWithName names the rejected key.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}

// ErrNotFoundWithName wraps ErrNotFound with the missing item.
func ErrNotFoundWithName(kind, name string) error {
	return fmt.Errorf("%s '%s': %w", kind, name, ErrNotFound)
}
