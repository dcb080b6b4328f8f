// Package orchestrator runs one recording session from first chunk to
// final summary.
package orchestrator

import "time"

// Session configuration defaults.
const (
	// Live transcript feed buffer; slow listeners drop events.
	TranscriptEventBuffer = 100

	DefaultMaxConcurrent = 4

	// Upper bound on waiting for the operator to name the session once
	// transcription has drained.
	DefaultNameTimeout = 10 * time.Minute
)
