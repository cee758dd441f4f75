package aio

import (
	"sync"
	"testing"
	"time"

	"github.com/ehrlich-b/go-aio/internal/interfaces"
	"github.com/ehrlich-b/go-aio/internal/resolver"
)

// newTestEngine builds an Engine wired to a MockReactor, so tests can drive
// completion manually via reactor.Fire instead of waiting on a real epoll
// loop.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *MockReactor) {
	t.Helper()
	reactor := NewMockReactor()
	e := NewEngine()
	allOpts := append([]Option{WithReactor(reactor), WithThreadNum(2)}, opts...)
	if err := e.Init(allOpts...); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { e.Free() })
	return e, reactor
}

func TestEngineInitRejectsDoubleInit(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Init(WithReactor(NewMockReactor())); err == nil {
		t.Fatal("expected second Init to fail")
	} else if !IsCode(err, ErrCodeAlreadyInitialized) {
		t.Errorf("expected ErrCodeAlreadyInitialized, got %v", err)
	}
}

func TestEngineInitRejectsNilReactor(t *testing.T) {
	e := NewEngine()
	err := e.Init()
	if err == nil {
		t.Fatal("expected Init without a reactor to fail")
	}
	if !IsCode(err, ErrCodeNoReactor) {
		t.Errorf("expected ErrCodeNoReactor, got %v", err)
	}
}

func TestEngineInitRejectsKernelAIOMode(t *testing.T) {
	e := NewEngine()
	err := e.Init(WithReactor(NewMockReactor()), WithMode(ModeKernelAIO))
	if !IsCode(err, ErrCodeUnsupportedMode) {
		t.Errorf("expected ErrCodeUnsupportedMode, got %v", err)
	}
}

func TestEngineFreeRejectsDoubleFree(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.Free(); err != nil {
		t.Fatalf("first Free failed: %v", err)
	}
	if err := e.Free(); err == nil {
		t.Fatal("expected second Free to fail")
	} else if !IsCode(err, ErrCodeNotInitialized) {
		t.Errorf("expected ErrCodeNotInitialized, got %v", err)
	}
	// re-init for the deferred Cleanup Free call
	if err := e.Init(WithReactor(NewMockReactor())); err != nil {
		t.Fatalf("re-init failed: %v", err)
	}
}

func TestEngineDispatchBeforeInitFails(t *testing.T) {
	e := NewEngine()
	_, err := e.Dispatch(&Task{Type: Read})
	if !IsCode(err, ErrCodeNotInitialized) {
		t.Errorf("expected ErrCodeNotInitialized, got %v", err)
	}
}

func TestEngineReadWriteRoundTrip(t *testing.T) {
	f := tempFile(t)
	defer f.Close()

	e, reactor := newTestEngine(t)

	payload := []byte("hello aio")
	var mu sync.Mutex
	done := make(chan *Task, 1)
	cb := func(t *Task) {
		mu.Lock()
		defer mu.Unlock()
		done <- t
	}

	id, err := e.Dispatch(&Task{
		Type:      Write,
		FD:        int(f.Fd()),
		Buf:       payload,
		NBytes:    len(payload),
		WriteMode: WritePositioned,
		Callback:  cb,
	})
	if err != nil {
		t.Fatalf("Dispatch write failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero task ID")
	}

	waitForPipe(t, e, reactor)
	wt := mustRecv(t, done)
	if wt.Err != nil {
		t.Fatalf("write task failed: %v", wt.Err)
	}
	if wt.Ret != len(payload) {
		t.Errorf("expected Ret=%d, got %d", len(payload), wt.Ret)
	}

	readBuf := make([]byte, len(payload))
	_, err = e.Dispatch(&Task{
		Type:     Read,
		FD:       int(f.Fd()),
		Buf:      readBuf,
		NBytes:   len(readBuf),
		Offset:   0,
		Callback: cb,
	})
	if err != nil {
		t.Fatalf("Dispatch read failed: %v", err)
	}

	waitForPipe(t, e, reactor)
	rt := mustRecv(t, done)
	if rt.Err != nil {
		t.Fatalf("read task failed: %v", rt.Err)
	}
	if string(readBuf[:rt.Ret]) != string(payload) {
		t.Errorf("expected %q, got %q", payload, readBuf[:rt.Ret])
	}
}

func TestEngineDNSLookupWithMockResolver(t *testing.T) {
	mr := NewMockResolver()
	mr.Hosts["example.invalid"] = "203.0.113.7"

	e, reactor := newTestEngine(t, WithResolver(mr))

	done := make(chan *Task, 1)
	buf := make([]byte, 32)
	_, err := e.Dispatch(&Task{
		Type:     DNSLookup,
		Buf:      buf,
		NBytes:   copy(buf, "example.invalid"),
		Family:   resolver.FamilyIPv4,
		Callback: func(t *Task) { done <- t },
	})
	if err != nil {
		t.Fatalf("Dispatch DNSLookup failed: %v", err)
	}

	waitForPipe(t, e, reactor)
	dt := mustRecv(t, done)
	if dt.Err != nil {
		t.Fatalf("DNSLookup task failed: %v", dt.Err)
	}
	if dt.Addr() != "203.0.113.7" {
		t.Errorf("expected addr 203.0.113.7, got %q", dt.Addr())
	}
}

func TestEngineGetAddrInfoWithMockResolver(t *testing.T) {
	mr := NewMockResolver()
	mr.AddrInfo["svc.invalid"] = []resolver.Result{{Port: 443}}

	e, reactor := newTestEngine(t, WithResolver(mr))

	done := make(chan *Task, 1)
	_, err := e.Dispatch(&Task{
		Type:     GetAddrInfo,
		Req:      &AddrInfoRequest{Host: "svc.invalid", Service: "https"},
		Callback: func(t *Task) { done <- t },
	})
	if err != nil {
		t.Fatalf("Dispatch GetAddrInfo failed: %v", err)
	}

	waitForPipe(t, e, reactor)
	gt := mustRecv(t, done)
	if gt.Err != nil {
		t.Fatalf("GetAddrInfo task failed: %v", gt.Err)
	}
	if gt.Ret != 0 {
		t.Errorf("expected Ret=0 on resolver success, got %d", gt.Ret)
	}
	if len(gt.Req.Results) != 1 {
		t.Errorf("expected 1 result, got %d", len(gt.Req.Results))
	}
	if gt.AddrPort().Port() != 443 {
		t.Errorf("expected port 443, got %d", gt.AddrPort().Port())
	}
}

// waitForPipe fires the drain handler via the mock reactor until every
// dispatched task has been handed off by its worker and completed (taskNum
// back to zero). Workers run concurrently with the test goroutine, so this
// retries briefly rather than firing exactly once.
func waitForPipe(t *testing.T, e *Engine, reactor *MockReactor) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := reactor.Fire(interfaces.EventAIO, e.compPipe.ReadFD()); err != nil {
			t.Fatalf("drain fire failed: %v", err)
		}
		if e.taskNum.Load() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func mustRecv(t *testing.T, ch chan *Task) *Task {
	t.Helper()
	select {
	case task := <-ch:
		return task
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task completion")
		return nil
	}
}
