package aio

import (
	"context"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-aio/internal/resolver"
)

// asErrno extracts the syscall.Errno behind a unix.* call's error, falling
// back to EIO if the concrete type is ever something else.
func asErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}

// dispatchTask is the job body run by a thread pool worker for a single
// task. It publishes the task into the in-flight table as its first action
// — only once it is actually running, which by construction can only happen
// after threadpool.Pool.Dispatch has accepted it — executes the task per its
// Type, and hands the result back through the completion pipe.
//
// This ordering is the Go-safe resolution of spec.md's "record allocation
// leaks on dispatch failure" open question: nothing is ever published to the
// in-flight table for a task whose dispatch failed, so there is nothing to
// leak.
func (e *Engine) dispatchTask(t *Task) {
	e.inflightMu.Lock()
	e.inflight[t.ID] = t
	e.inflightMu.Unlock()

	start := time.Now()
	e.executeTask(t)
	latencyNs := uint64(time.Since(start).Nanoseconds())

	e.reportMetrics(t, latencyNs)
	e.handoff(t)
}

// executeTask runs the blocking syscall or resolver call for t, retrying on
// EINTR/EAGAIN exactly as spec.md's "goto start_switch" describes.
func (e *Engine) executeTask(t *Task) {
	for {
		var err error
		switch t.Type {
		case Write:
			err = e.execWrite(t)
		case Read:
			err = e.execRead(t)
		case DNSLookup:
			err = e.execDNSLookup(t)
		case GetAddrInfo:
			err = e.execGetAddrInfo(t)
		default:
			t.Err = NewTaskError("Dispatch", t.ID, ErrCodeInvalidTask, "unknown task type")
			t.Ret = -1
			return
		}

		if err == nil {
			t.Err = nil
			return
		}
		if ae, ok := err.(*Error); ok && (ae.Errno == unix.EINTR || ae.Errno == unix.EAGAIN) {
			continue
		}
		t.Err = err
		return
	}
}

func (e *Engine) execWrite(t *Task) error {
	if err := unix.Flock(t.FD, unix.LOCK_EX); err != nil {
		t.Ret = -1
		return NewErrnoError("Write", asErrno(err))
	}
	defer e.unlockBestEffort(t.FD, "Write")

	var n int
	var err error
	if t.WriteMode == WriteSequential {
		n, err = unix.Write(t.FD, t.Buf[:t.NBytes])
	} else {
		n, err = unix.Pwrite(t.FD, t.Buf[:t.NBytes], t.Offset)
	}
	if err != nil {
		t.Ret = -1
		return NewErrnoError("Write", asErrno(err))
	}
	t.Ret = n
	return nil
}

func (e *Engine) execRead(t *Task) error {
	if err := unix.Flock(t.FD, unix.LOCK_SH); err != nil {
		t.Ret = -1
		return NewErrnoError("Read", asErrno(err))
	}
	defer e.unlockBestEffort(t.FD, "Read")

	n, err := unix.Pread(t.FD, t.Buf[:t.NBytes], t.Offset)
	if err != nil {
		t.Ret = -1
		return NewErrnoError("Read", asErrno(err))
	}
	t.Ret = n
	return nil
}

func (e *Engine) unlockBestEffort(fd int, op string) {
	if err := unix.Flock(fd, unix.LOCK_UN); err != nil {
		e.log.WithTask(0).WithOp(op).Warn("flock(LOCK_UN) failed", "err", err)
	}
}

func (e *Engine) execDNSLookup(t *Task) error {
	host := string(t.Buf[:t.NBytes])
	for i := range t.Buf {
		t.Buf[i] = 0
	}

	if resolver.SerializeResolverCalls {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	if _, err := e.resolver.LookupHost(context.Background(), host, t.Family, t.Buf); err != nil {
		t.Ret = -1
		if _, ok := err.(*resolver.ErrAddressFormat); ok {
			return NewTaskError("DNSLookup", t.ID, ErrCodeAddressFormat, err.Error())
		}
		return NewTaskError("DNSLookup", t.ID, ErrCodeResolverFailed, err.Error())
	}
	// Resolver paths report ret=0 on success; the textual address itself is
	// recovered from Buf via Task.Addr, not from a byte count.
	t.Ret = 0
	return nil
}

func (e *Engine) execGetAddrInfo(t *Task) error {
	if t.Req == nil {
		t.Ret = -1
		return NewTaskError("GetAddrInfo", t.ID, ErrCodeInvalidTask, "nil request")
	}

	if resolver.SerializeResolverCalls {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	hints := resolver.Hints{Family: t.Req.Hints.Family}
	results, err := e.resolver.GetAddrInfo(context.Background(), t.Req.Host, t.Req.Service, hints)
	if err != nil {
		t.Ret = -1
		return NewTaskError("GetAddrInfo", t.ID, ErrCodeResolverFailed, err.Error())
	}
	t.Req.Results = results
	// Resolver paths report ret=0 on success; callers read Req.Results
	// directly for the match count, matching "writes the request block in
	// place."
	t.Ret = 0
	return nil
}

// handoff writes t's ID into the completion pipe, matching spec.md's
// mutex-serialized pipe write. internal/pipe already retries EINTR
// internally and yields on EAGAIN; any other failure is logged here and the
// task is left in the in-flight table for later recovery, matching "does not
// free on write failure".
func (e *Engine) handoff(t *Task) {
	if err := e.compPipe.WriteID(t.ID); err != nil {
		e.log.WithTask(t.ID).WithOp(t.Type.String()).WithError(err)
	}
}

func (e *Engine) reportMetrics(t *Task, latencyNs uint64) {
	success := t.Err == nil
	var bytes uint64
	if success && t.Ret > 0 {
		bytes = uint64(t.Ret)
	}
	switch t.Type {
	case Read:
		e.observer.ObserveRead(bytes, latencyNs, success)
	case Write:
		e.observer.ObserveWrite(bytes, latencyNs, success)
	case DNSLookup:
		e.observer.ObserveDNSLookup(latencyNs, success)
	case GetAddrInfo:
		e.observer.ObserveGetAddrInfo(latencyNs, success)
	}
}
