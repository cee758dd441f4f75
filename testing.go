package aio

import (
	"context"
	"sync"

	"github.com/ehrlich-b/go-aio/internal/interfaces"
	"github.com/ehrlich-b/go-aio/internal/resolver"
)

// MockReactor provides a deterministic, in-process implementation of
// internal/interfaces.Reactor for unit tests. It records every Add/Del/
// SetHandler call and lets the test drive completion directly by calling
// Fire, instead of running a real epoll loop.
type MockReactor struct {
	mu sync.Mutex

	handlers map[interfaces.EventClass]interfaces.HandlerFunc
	added    []int
	deleted  []int
}

// NewMockReactor creates an empty MockReactor.
func NewMockReactor() *MockReactor {
	return &MockReactor{handlers: make(map[interfaces.EventClass]interfaces.HandlerFunc)}
}

// SetHandler implements interfaces.Reactor.
func (m *MockReactor) SetHandler(class interfaces.EventClass, fn interfaces.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[class] = fn
}

// Add implements interfaces.Reactor.
func (m *MockReactor) Add(fd int, class interfaces.EventClass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, fd)
	return nil
}

// Del implements interfaces.Reactor.
func (m *MockReactor) Del(fd int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, fd)
	return nil
}

// Fire invokes the handler registered for class as if fd had become
// readable, returning whatever error the handler returns.
func (m *MockReactor) Fire(class interfaces.EventClass, fd int) error {
	m.mu.Lock()
	fn := m.handlers[class]
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(fd)
}

// AddedFDs returns every fd passed to Add, in call order.
func (m *MockReactor) AddedFDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.added))
	copy(out, m.added)
	return out
}

// DeletedFDs returns every fd passed to Del, in call order.
func (m *MockReactor) DeletedFDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.deleted))
	copy(out, m.deleted)
	return out
}

var _ interfaces.Reactor = (*MockReactor)(nil)

// MockResolver is a deterministic, network-free implementation of
// internal/resolver.Interface for unit tests: it returns canned results
// keyed by hostname rather than consulting net.Resolver, so DNSLookup and
// GetAddrInfo tests never depend on real network availability.
type MockResolver struct {
	mu sync.Mutex

	// Hosts maps a hostname to the textual address LookupHost should write
	// into the caller's buffer.
	Hosts map[string]string

	// AddrInfo maps a hostname to the Results GetAddrInfo should return.
	AddrInfo map[string][]resolver.Result

	// Err, if set, is returned by both methods instead of a canned result.
	Err error
}

// NewMockResolver creates an empty MockResolver; populate Hosts/AddrInfo
// before use.
func NewMockResolver() *MockResolver {
	return &MockResolver{
		Hosts:    make(map[string]string),
		AddrInfo: make(map[string][]resolver.Result),
	}
}

// LookupHost implements resolver.Interface.
func (m *MockResolver) LookupHost(ctx context.Context, host string, family resolver.Family, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	text, ok := m.Hosts[host]
	if !ok {
		return 0, &dnsNotFoundError{host: host}
	}
	if len(text) > len(buf) {
		return 0, &resolver.ErrAddressFormat{Addr: text}
	}
	return copy(buf, text), nil
}

// GetAddrInfo implements resolver.Interface.
func (m *MockResolver) GetAddrInfo(ctx context.Context, host, service string, hints resolver.Hints) ([]resolver.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	results, ok := m.AddrInfo[host]
	if !ok {
		return nil, &dnsNotFoundError{host: host}
	}
	return results, nil
}

var _ resolver.Interface = (*MockResolver)(nil)

// dnsNotFoundError is a minimal not-found error for MockResolver,
// avoiding a dependency on net.DNSError's host-resolver-specific fields.
type dnsNotFoundError struct{ host string }

func (e *dnsNotFoundError) Error() string { return "mock resolver: no entry for " + e.host }

// CollectingCallback returns a Callback that appends every completed task to
// the slice behind out, guarded by a mutex so it's safe to pass directly to
// WithCallback in concurrent tests.
func CollectingCallback(out *[]*Task) (Callback, *sync.Mutex) {
	var mu sync.Mutex
	return func(t *Task) {
		mu.Lock()
		defer mu.Unlock()
		*out = append(*out, t)
	}, &mu
}
