// Package reactor implements a minimal epoll-based event loop (Linux only),
// in the idiom of ehrlich-b-go-ublk's queue runner I/O loop: a dedicated,
// OS-thread-pinned goroutine running select-on-ctx.Done() against a
// kernel-level wait primitive, with per-fd handler registration guarded by a
// mutex so Add/Del are safe to call from goroutines other than the loop
// itself.
package reactor

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-aio/internal/interfaces"
	"github.com/ehrlich-b/go-aio/internal/logging"
)

// Reactor is an epoll(7)-backed event loop satisfying
// internal/interfaces.Reactor. One Reactor runs one OS-thread-pinned loop
// goroutine; fds are registered for read-readiness only, matching the
// engine's sole use (the completion pipe's read end).
type Reactor struct {
	epollFD int

	mu       sync.Mutex
	handlers map[interfaces.EventClass]interfaces.HandlerFunc
	fdClass  map[int]interfaces.EventClass

	log *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Reactor. Call Run to start its event loop.
func New() (*Reactor, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reactor{
		epollFD:  fd,
		handlers: make(map[interfaces.EventClass]interfaces.HandlerFunc),
		fdClass:  make(map[int]interfaces.EventClass),
		log:      logging.Default(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// SetHandler installs the callback invoked when a fd registered under class
// becomes readable.
func (r *Reactor) SetHandler(class interfaces.EventClass, fn interfaces.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[class] = fn
}

// Add registers fd for read readiness under the given event class.
func (r *Reactor) Add(fd int, class interfaces.EventClass) error {
	r.mu.Lock()
	r.fdClass[fd] = class
	r.mu.Unlock()

	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

// Del deregisters fd.
func (r *Reactor) Del(fd int) error {
	r.mu.Lock()
	delete(r.fdClass, fd)
	r.mu.Unlock()

	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("reactor: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Start launches the event loop on its own goroutine and returns
// immediately.
func (r *Reactor) Start() {
	go r.Run()
}

// Run pins the calling goroutine to its OS thread and runs the event loop
// until ctx is done or Stop is called. Run is meant to be launched with `go
// r.Run()`; it blocks until the loop exits.
func (r *Reactor) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(r.done)

	events := make([]unix.EpollEvent, 32)
	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		n, err := unix.EpollWait(r.epollFD, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			r.log.Warnf("reactor: epoll_wait: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)

			r.mu.Lock()
			class, ok := r.fdClass[fd]
			var handler interfaces.HandlerFunc
			if ok {
				handler = r.handlers[class]
			}
			r.mu.Unlock()

			if handler == nil {
				continue
			}
			if err := handler(fd); err != nil {
				r.log.Warnf("reactor: handler for fd=%d: %v", fd, err)
			}
		}
	}
}

// Stop signals the event loop to exit and waits for it to do so.
func (r *Reactor) Stop() {
	r.cancel()
	<-r.done
}

// Close releases the epoll fd. Stop must be called first if Run was started.
func (r *Reactor) Close() error {
	return unix.Close(r.epollFD)
}

var _ interfaces.Reactor = (*Reactor)(nil)
