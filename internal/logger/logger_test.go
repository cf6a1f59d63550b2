package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger(level, format)
	fn()
	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("catalog reconciled") },
			contains: []string{"catalog reconciled"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("resolving archive") },
			contains: []string{"resolving archive", "level=DEBUG"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("resolving archive") },
			excludes: []string{"resolving archive"},
		},
		{
			name:     "warn log with fields",
			level:    "warn",
			logFn:    func() { Warn("skipping package", Fields{"package": "com.example", "attempt": 2}) },
			contains: []string{"skipping package", "level=WARN", "package=com.example", "attempt=2"},
		},
		{
			name:     "success log",
			level:    "info",
			logFn:    func() { Success("archive saved") },
			contains: []string{"archive saved", "status=success"},
		},
		{
			name:     "formatted debug with fields",
			level:    "debug",
			logFn:    func() { DebugfWithFields(Fields{"count": 3}, "wrote entry %d", 1) },
			contains: []string{"wrote entry 1", "count=3"},
		},
		{
			name:     "component logger",
			level:    "info",
			logFn:    func() { Component("catalog").Info("pass done") },
			contains: []string{"component=catalog", "pass done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.level, FormatText, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, notWant := range tt.excludes {
				assert.NotContains(t, out, notWant)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	out := captureOutput(t, "info", FormatJSON, func() {
		Info("saved", Fields{"uri": "file:///tmp/a.apk", "entries": 3})
	})
	assert.Contains(t, out, `"msg":"saved"`)
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"uri":"file:///tmp/a.apk"`)
	assert.Contains(t, out, `"entries":3`)
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger("error", FormatText)
	Info("hidden")
	SetLevel("debug")
	Debug("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestMergeFields(t *testing.T) {
	attrs := mergeFields(Fields{"a": 1}, Fields{"a": 2, "b": "x"})
	result := map[string]interface{}{}
	for i := 0; i < len(attrs); i += 2 {
		result[attrs[i].(string)] = attrs[i+1]
	}
	assert.Equal(t, map[string]interface{}{"a": 2, "b": "x"}, result)
}
