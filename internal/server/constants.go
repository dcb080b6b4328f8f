// Package server exposes a running session over HTTP and WebSocket.
package server

import "time"

// Server configuration constants
const (
	// Text truncation limit for status previews
	TextPreviewLimit = 500

	// Per-connection WebSocket message limit
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Write deadline for a single broadcast frame
	BroadcastTimeout = 5 * time.Second

	ShutdownTimeout = 5 * time.Second
)
