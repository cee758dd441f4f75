package aio

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/go-aio/internal/constants"
	"github.com/ehrlich-b/go-aio/internal/interfaces"
	"github.com/ehrlich-b/go-aio/internal/logging"
	"github.com/ehrlich-b/go-aio/internal/pipe"
	"github.com/ehrlich-b/go-aio/internal/reactor"
	"github.com/ehrlich-b/go-aio/internal/resolver"
	"github.com/ehrlich-b/go-aio/internal/threadpool"
)

// newDefaultReactor builds the epoll-based Reactor used when the
// process-wide singleton engine is lazily initialized via package-level
// Dispatch.
func newDefaultReactor() (*reactor.Reactor, error) {
	return reactor.New()
}

// Engine is an asynchronous I/O offload engine: Read/Write/DNSLookup/
// GetAddrInfo calls are dispatched to a worker pool and completed on the
// caller-supplied Reactor.
//
// The zero value is not usable; construct with NewEngine. Package-level
// Init/Free/Dispatch/Read/Write/DNSLookup/GetAddrInfo operate on a
// process-wide singleton Engine, matching swoole's global SwooleAIO.
type Engine struct {
	mu   sync.Mutex // guards Init/Free and the resolver-serialize path
	init bool

	mode      Mode
	threadNum int
	maxEvents int

	reactor  interfaces.Reactor
	pool     *threadpool.Pool
	compPipe *pipe.Pipe
	callback Callback
	observer Observer
	metrics  *Metrics
	resolver resolver.Interface

	taskNum   atomic.Uint64
	currentID atomic.Uint64

	inflightMu sync.Mutex
	inflight   map[uint64]*Task

	residue  []byte      // partial task ID carried across drain() invocations
	drainBuf [4096]byte  // scratch buffer reused by drain, single-goroutine only

	log *logging.Logger
}

// NewEngine constructs an unshared Engine. Call Init before submitting work.
func NewEngine(opts ...Option) *Engine {
	return &Engine{
		inflight: make(map[uint64]*Task),
		observer: NoOpObserver{},
		resolver: resolver.Default,
		log:      logging.Default(),
	}
}

// Init initializes the engine: it creates the completion pipe, starts the
// thread pool, and registers the pipe's read end with the configured
// Reactor. Init rejects double-init and rejects initialization without a
// Reactor, matching spec.md's treatment of a nil main_reactor.
func (e *Engine) Init(opts ...Option) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.init {
		return NewError("Init", ErrCodeAlreadyInitialized, "engine already initialized")
	}

	cfg := &config{
		threadNum: runtime.GOMAXPROCS(0),
		maxEvents: constants.DefaultMaxEvents,
		mode:      ModeThreadPool,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.threadNum <= 0 {
		cfg.threadNum = runtime.GOMAXPROCS(0)
	}
	if cfg.maxEvents <= 0 {
		cfg.maxEvents = constants.DefaultMaxEvents
	}

	if cfg.mode == ModeKernelAIO {
		return NewError("Init", ErrCodeUnsupportedMode, "kernel AIO mode is not implemented by this engine")
	}
	if cfg.reactor == nil {
		return NewError("Init", ErrCodeNoReactor, "no reactor registered")
	}

	p, err := pipe.New()
	if err != nil {
		return WrapError("Init", err)
	}

	e.mode = cfg.mode
	e.threadNum = cfg.threadNum
	e.maxEvents = cfg.maxEvents
	e.reactor = cfg.reactor
	e.compPipe = p
	e.callback = cfg.callback
	if cfg.resolver != nil {
		e.resolver = cfg.resolver
	}
	e.metrics = NewMetrics()
	if cfg.observer != nil {
		e.observer = cfg.observer
	} else {
		e.observer = NewMetricsObserver(e.metrics)
	}

	e.pool = threadpool.New(e.threadNum)
	if err := e.pool.Start(); err != nil {
		p.Close()
		return WrapError("Init", err)
	}

	e.reactor.SetHandler(interfaces.EventAIO, e.drain)
	if err := e.reactor.Add(p.ReadFD(), interfaces.EventAIO); err != nil {
		e.pool.Close()
		p.Close()
		return WrapError("Init", err)
	}

	e.init = true
	e.log.Infof("aio: engine initialized, threads=%d", e.threadNum)
	return nil
}

// Free shuts the engine down: it stops the thread pool (joining workers),
// deregisters from the reactor, and closes both pipe endpoints. In-flight
// work is not drained; per spec.md §7 its fate is undefined.
func (e *Engine) Free() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.init {
		return NewError("Free", ErrCodeNotInitialized, "engine not initialized")
	}

	if e.reactor != nil && e.compPipe != nil {
		if err := e.reactor.Del(e.compPipe.ReadFD()); err != nil {
			e.log.Warnf("aio: reactor deregistration failed during Free: %v", err)
		}
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.compPipe != nil {
		e.compPipe.Close()
	}
	if e.metrics != nil {
		e.metrics.Stop()
	}

	e.init = false
	e.log.Info("aio: engine freed")
	return nil
}

// nextID allocates the next task ID. Wraps around uint64, matching
// spec.md's "monotonic and unique until wraparound" invariant.
func (e *Engine) nextID() uint64 {
	return e.currentID.Add(1)
}

// --- process-wide singleton -------------------------------------------------

var defaultEngine = NewEngine()

// Init initializes the process-wide default engine.
func Init(opts ...Option) error {
	return defaultEngine.Init(opts...)
}

// Free shuts down the process-wide default engine.
func Free() error {
	return defaultEngine.Free()
}

// DefaultEngine returns the process-wide singleton engine.
func DefaultEngine() *Engine {
	return defaultEngine
}
