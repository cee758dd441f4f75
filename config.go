package aio

import (
	"github.com/ehrlich-b/go-aio/internal/interfaces"
	"github.com/ehrlich-b/go-aio/internal/resolver"
)

// Mode selects the engine's completion mechanism.
type Mode int

const (
	// ModeThreadPool dispatches blocking syscalls to a goroutine pool and
	// completes them through internal/pipe + internal/reactor. This is the
	// only mode implemented by this package.
	ModeThreadPool Mode = iota

	// ModeKernelAIO is a forward-compatibility placeholder for a native
	// kernel-AIO backend (e.g. io_uring). It is declared but Init rejects
	// it; see DESIGN.md for why it is not wired up here.
	ModeKernelAIO
)

// config holds the assembled engine configuration built from Options.
type config struct {
	threadNum int
	maxEvents int
	mode      Mode
	reactor   interfaces.Reactor
	callback  Callback
	observer  Observer
	resolver  resolver.Interface
}

// Option configures an Engine before Init.
type Option func(*config)

// WithThreadNum sets the number of worker goroutines. Values <= 0 fall back
// to runtime.GOMAXPROCS(0) at Init time.
func WithThreadNum(n int) Option {
	return func(c *config) { c.threadNum = n }
}

// WithMaxEvents sets how many completion-pipe entries the drain handler
// reads per invocation.
func WithMaxEvents(n int) Option {
	return func(c *config) { c.maxEvents = n }
}

// WithMode selects the engine's completion mechanism.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithReactor supplies the Reactor the engine registers its completion pipe
// with. Required: Init fails without one.
func WithReactor(r interfaces.Reactor) Option {
	return func(c *config) { c.reactor = r }
}

// WithCallback sets the engine-wide default callback, invoked for any task
// that doesn't set its own Task.Callback.
func WithCallback(cb Callback) Option {
	return func(c *config) { c.callback = cb }
}

// WithObserver sets the metrics observer the engine reports task completion
// to. Defaults to a MetricsObserver recording into the engine's own Metrics,
// created at Init.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observer = o }
}

// WithResolver overrides the name-resolution backend used by DNSLookup and
// GetAddrInfo tasks. Defaults to resolver.Default (net.Resolver-backed).
// Tests inject a MockResolver here to avoid touching the network.
func WithResolver(r resolver.Interface) Option {
	return func(c *config) { c.resolver = r }
}
