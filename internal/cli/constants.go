package cli

// Default values for CLI output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// MaxLabelLength is the maximum length of an app label in tables.
	MaxLabelLength = 32
)
