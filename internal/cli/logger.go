package cli

import (
	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/config"
)

// configureLogger applies the configured level; --verbose forces debug.
func configureLogger(settings config.Settings) {
	level := settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level, logger.FormatText)
}
