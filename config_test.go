package aio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsApply(t *testing.T) {
	reactor := NewMockReactor()
	mr := NewMockResolver()
	var observed []uint32
	obs := &fakeObserver{pending: &observed}

	cfg := &config{}
	opts := []Option{
		WithThreadNum(4),
		WithMaxEvents(256),
		WithMode(ModeThreadPool),
		WithReactor(reactor),
		WithCallback(func(*Task) {}),
		WithObserver(obs),
		WithResolver(mr),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	assert.Equal(t, 4, cfg.threadNum)
	assert.Equal(t, 256, cfg.maxEvents)
	assert.Equal(t, ModeThreadPool, cfg.mode)
	assert.Equal(t, reactor, cfg.reactor)
	assert.NotNil(t, cfg.callback)
	assert.Equal(t, obs, cfg.observer)
	assert.Equal(t, mr, cfg.resolver)
}

func TestInitAppliesThreadNumAndMaxEventsDefaults(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Init(WithReactor(NewMockReactor()), WithThreadNum(0), WithMaxEvents(-1)))
	defer e.Free()

	assert.Greater(t, e.threadNum, 0)
	assert.Greater(t, e.maxEvents, 0)
}

type fakeObserver struct {
	pending *[]uint32
}

func (f *fakeObserver) ObserveRead(bytes uint64, latencyNs uint64, success bool)  {}
func (f *fakeObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) {}
func (f *fakeObserver) ObserveDNSLookup(latencyNs uint64, success bool)           {}
func (f *fakeObserver) ObserveGetAddrInfo(latencyNs uint64, success bool)         {}
func (f *fakeObserver) ObservePending(depth uint32)                              { *f.pending = append(*f.pending, depth) }
