package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutCardsWidth is the minimum width to place stat cards side by side.
	LayoutCardsWidth = 90
)

// Log display limits.
const (
	// LogTailLines is how many lines of the log file the diagnostics view reads.
	LogTailLines = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default refresh interval for snapshots and the
	// cold-start progress bar.
	DefaultUIInterval = time.Second

	// LogRefreshInterval is the minimum time between log file reads.
	LogRefreshInterval = 2 * time.Second

	// ToastTTL is how long a notification stays on screen.
	ToastTTL = 4 * time.Second

	// ColdStartExpected is how long a dormant backend usually takes to wake.
	ColdStartExpected = 60 * time.Second

	// ColdStartGrace is how long a request may be loading before the
	// cold-start alert appears on a cold-start host.
	ColdStartGrace = 3 * time.Second
)
