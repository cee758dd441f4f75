// Package constants holds default tuning values for the aio engine.
package constants

// Default configuration constants.
const (
	// DefaultMaxEvents is the number of completion-pipe entries drained per
	// reactor-readable invocation (spec's "read up to N pointer-sized
	// elements in one call").
	DefaultMaxEvents = 128

	// DefaultDNSBufferSize is used by callers that don't size their own
	// DNSLookup output buffer.
	DefaultDNSBufferSize = 64

	// TaskIDSize is the width in bytes of one task ID on the completion pipe.
	TaskIDSize = 8
)
