package aio

import "github.com/ehrlich-b/go-aio/internal/constants"

// Re-exported tuning defaults.
const (
	DefaultMaxEvents     = constants.DefaultMaxEvents
	DefaultDNSBufferSize = constants.DefaultDNSBufferSize
)
