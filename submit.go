package aio

import (
	"github.com/ehrlich-b/go-aio/internal/resolver"
)

// Read submits a read of nbytes from fd at offset into buf, completed
// asynchronously. It returns the task ID, which the caller can use to
// correlate the eventual Callback invocation.
func (e *Engine) Read(fd int, buf []byte, nbytes int, offset int64) (uint64, error) {
	t := &Task{
		Type:   Read,
		FD:     fd,
		Buf:    buf,
		NBytes: nbytes,
		Offset: offset,
	}
	return e.Dispatch(t)
}

// Write submits a write of nbytes from buf to fd. offset == 0 means
// "sequential append", the legacy convention spec.md flags as overloaded;
// use WriteAt to write at byte offset 0 explicitly.
func (e *Engine) Write(fd int, buf []byte, nbytes int, offset int64) (uint64, error) {
	mode := WritePositioned
	if offset == 0 {
		mode = WriteSequential
	}
	t := &Task{
		Type:      Write,
		FD:        fd,
		Buf:       buf,
		NBytes:    nbytes,
		Offset:    offset,
		WriteMode: mode,
	}
	return e.Dispatch(t)
}

// WriteAt submits a write of nbytes from buf to fd at exactly offset,
// including offset == 0, never triggering the sequential-append convention.
func (e *Engine) WriteAt(fd int, buf []byte, nbytes int, offset int64) (uint64, error) {
	t := &Task{
		Type:      Write,
		FD:        fd,
		Buf:       buf,
		NBytes:    nbytes,
		Offset:    offset,
		WriteMode: WritePositioned,
	}
	return e.Dispatch(t)
}

// DNSLookup submits a hostname resolution of the given family, writing the
// resolved textual address into buf (bounded by len(buf)) on completion.
func (e *Engine) DNSLookup(host string, family resolver.Family, buf []byte) (uint64, error) {
	copy(buf, host)
	t := &Task{
		Type:   DNSLookup,
		Buf:    buf,
		NBytes: len(host),
		Family: family,
	}
	return e.Dispatch(t)
}

// GetAddrInfo submits a structured hostname/service resolution, filling
// req.Results on completion.
func (e *Engine) GetAddrInfo(host string, service string, hints AddrInfoHints) (uint64, error) {
	t := &Task{
		Type: GetAddrInfo,
		Req: &AddrInfoRequest{
			Host:    host,
			Service: service,
			Hints:   hints,
		},
	}
	return e.Dispatch(t)
}

// Dispatch submits t to the engine's thread pool. It assigns t.ID, reports
// the new pending-task depth to the configured Observer, and hands t to the
// pool. A failed dispatch never publishes t to the in-flight table, so there
// is nothing to leak on failure — the Go-native resolution of spec.md's
// "record allocation leaks on dispatch failure" open question.
func (e *Engine) Dispatch(t *Task) (uint64, error) {
	e.mu.Lock()
	initialized := e.init
	e.mu.Unlock()
	if !initialized {
		return 0, NewError("Dispatch", ErrCodeNotInitialized, "engine not initialized")
	}

	t.ID = e.nextID()

	if err := e.pool.Dispatch(func() { e.dispatchTask(t) }); err != nil {
		return 0, NewTaskError("Dispatch", t.ID, ErrCodeDispatchFailed, err.Error())
	}

	pending := e.taskNum.Add(1)
	e.observer.ObservePending(uint32(pending))

	return t.ID, nil
}

// --- process-wide singleton façade -----------------------------------------

// Read submits a read on the process-wide default engine.
func Read(fd int, buf []byte, nbytes int, offset int64) (uint64, error) {
	return defaultEngine.Read(fd, buf, nbytes, offset)
}

// Write submits a write on the process-wide default engine.
func Write(fd int, buf []byte, nbytes int, offset int64) (uint64, error) {
	return defaultEngine.Write(fd, buf, nbytes, offset)
}

// DNSLookup submits a hostname resolution on the process-wide default
// engine.
func DNSLookup(host string, family resolver.Family, buf []byte) (uint64, error) {
	return defaultEngine.DNSLookup(host, family, buf)
}

// GetAddrInfo submits a structured resolution on the process-wide default
// engine.
func GetAddrInfo(host, service string, hints AddrInfoHints) (uint64, error) {
	return defaultEngine.GetAddrInfo(host, service, hints)
}

// Dispatch submits t on the process-wide default engine. If the engine has
// not yet been initialized, Dispatch initializes it with default options
// first, matching spec.md's lazy-init behavior for the global singleton.
func Dispatch(t *Task) (uint64, error) {
	defaultEngine.mu.Lock()
	needsInit := !defaultEngine.init
	defaultEngine.mu.Unlock()

	if needsInit {
		r, err := newDefaultReactor()
		if err != nil {
			return 0, WrapError("Dispatch", err)
		}
		if err := defaultEngine.Init(WithReactor(r)); err != nil {
			return 0, err
		}
		r.Start()
	}
	return defaultEngine.Dispatch(t)
}
