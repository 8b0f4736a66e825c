package cli

import "github.com/fatih/color"

// Output formatters for listings and status messages.
var (
	titleFmt = color.New(color.FgCyan, color.Bold).SprintFunc()
	tagFmt   = color.New(color.FgYellow).SprintFunc()
	dimFmt   = color.New(color.Faint).SprintFunc()
	okFmt    = color.New(color.FgGreen).SprintFunc()
	errFmt   = color.New(color.FgRed, color.Bold).SprintFunc()
	audioFmt = color.New(color.FgMagenta).SprintFunc()
)
