package aio

import (
	"syscall"
	"testing"

	"github.com/ehrlich-b/go-aio/internal/resolver"
)

func newBareEngine() *Engine {
	e := NewEngine()
	e.resolver = resolver.Default
	return e
}

func TestExecWritePositioned(t *testing.T) {
	e := newBareEngine()
	f := tempFile(t)
	defer f.Close()

	task := &Task{
		FD:        int(f.Fd()),
		Buf:       []byte("positioned"),
		NBytes:    len("positioned"),
		Offset:    5,
		WriteMode: WritePositioned,
	}
	if err := e.execWrite(task); err != nil {
		t.Fatalf("execWrite failed: %v", err)
	}
	if task.Ret != len("positioned") {
		t.Errorf("expected Ret=%d, got %d", len("positioned"), task.Ret)
	}

	got := make([]byte, len("positioned"))
	n, err := f.ReadAt(got, 5)
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if string(got[:n]) != "positioned" {
		t.Errorf("expected %q at offset 5, got %q", "positioned", got[:n])
	}
}

func TestExecWriteSequential(t *testing.T) {
	e := newBareEngine()
	f := tempFile(t)
	defer f.Close()

	first := &Task{FD: int(f.Fd()), Buf: []byte("abc"), NBytes: 3, WriteMode: WriteSequential}
	second := &Task{FD: int(f.Fd()), Buf: []byte("def"), NBytes: 3, WriteMode: WriteSequential}

	if err := e.execWrite(first); err != nil {
		t.Fatalf("first execWrite failed: %v", err)
	}
	if err := e.execWrite(second); err != nil {
		t.Fatalf("second execWrite failed: %v", err)
	}

	got := make([]byte, 6)
	n, _ := f.ReadAt(got, 0)
	if string(got[:n]) != "abcdef" {
		t.Errorf("expected sequential appends to produce abcdef, got %q", got[:n])
	}
}

func TestExecReadPositioned(t *testing.T) {
	e := newBareEngine()
	f := tempFile(t)
	defer f.Close()

	if _, err := f.WriteAt([]byte("readme"), 0); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}

	buf := make([]byte, 6)
	task := &Task{FD: int(f.Fd()), Buf: buf, NBytes: 6, Offset: 0}
	if err := e.execRead(task); err != nil {
		t.Fatalf("execRead failed: %v", err)
	}
	if string(buf[:task.Ret]) != "readme" {
		t.Errorf("expected %q, got %q", "readme", buf[:task.Ret])
	}
}

func TestExecWriteBadFDReturnsErrnoError(t *testing.T) {
	e := newBareEngine()
	task := &Task{FD: -1, Buf: []byte("x"), NBytes: 1, WriteMode: WritePositioned}
	err := e.execWrite(task)
	if err == nil {
		t.Fatal("expected error for bad fd")
	}
	ae, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ae.Errno != syscall.EBADF {
		t.Errorf("expected EBADF, got %v", ae.Errno)
	}
	if task.Ret >= 0 {
		t.Errorf("expected Ret < 0 on failure, got %d", task.Ret)
	}
}

func TestExecDNSLookupUsesEngineResolver(t *testing.T) {
	mr := NewMockResolver()
	mr.Hosts["host.invalid"] = "198.51.100.9"

	e := newBareEngine()
	e.resolver = mr

	buf := make([]byte, 32)
	task := &Task{Buf: buf, NBytes: copy(buf, "host.invalid"), Family: resolver.FamilyIPv4}
	if err := e.execDNSLookup(task); err != nil {
		t.Fatalf("execDNSLookup failed: %v", err)
	}
	if task.Ret != 0 {
		t.Errorf("expected Ret=0 on resolver success, got %d", task.Ret)
	}
	if task.Addr() != "198.51.100.9" {
		t.Errorf("expected 198.51.100.9, got %q", task.Addr())
	}
}

func TestExecDNSLookupAddressFormatError(t *testing.T) {
	mr := NewMockResolver()
	mr.Hosts["host"] = "a-very-long-address-that-does-not-fit-in-4-bytes"

	e := newBareEngine()
	e.resolver = mr

	buf := make([]byte, 4)
	task := &Task{Buf: buf, NBytes: copy(buf, "host")}

	err := e.execDNSLookup(task)
	if err == nil {
		t.Fatal("expected address format error")
	}
	if !IsCode(err, ErrCodeAddressFormat) {
		t.Errorf("expected ErrCodeAddressFormat, got %v", err)
	}
	if task.Ret >= 0 {
		t.Errorf("expected Ret < 0 on failure, got %d", task.Ret)
	}
}

func TestExecGetAddrInfoNilRequest(t *testing.T) {
	e := newBareEngine()
	task := &Task{Type: GetAddrInfo}
	err := e.execGetAddrInfo(task)
	if !IsCode(err, ErrCodeInvalidTask) {
		t.Errorf("expected ErrCodeInvalidTask, got %v", err)
	}
	if task.Ret >= 0 {
		t.Errorf("expected Ret < 0 on failure, got %d", task.Ret)
	}
}

func TestExecuteTaskUnknownTypeIsInvalid(t *testing.T) {
	e := newBareEngine()
	task := &Task{Type: Type(99)}
	e.executeTask(task)
	if !IsCode(task.Err, ErrCodeInvalidTask) {
		t.Errorf("expected ErrCodeInvalidTask, got %v", task.Err)
	}
	if task.Ret >= 0 {
		t.Errorf("expected Ret < 0 on failure, got %d", task.Ret)
	}
}

func TestAsErrnoFallsBackToEIO(t *testing.T) {
	plainErr := &Error{Code: ErrCodeIOError}
	if got := asErrno(plainErr); got != syscall.EIO {
		t.Errorf("expected fallback EIO for non-errno error, got %v", got)
	}
	if got := asErrno(syscall.EBADF); got != syscall.EBADF {
		t.Errorf("expected EBADF passed through, got %v", got)
	}
}
