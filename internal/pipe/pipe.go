// Package pipe implements the completion channel workers use to hand
// finished task IDs back to the reactor thread. It is a unix.Socketpair byte
// stream rather than a pipe(2) fd pair: both ends are full-duplex sockets,
// which makes the non-blocking reader side (SetNonblock) and the blocking,
// mutex-serialized writer side (one per engine, shared by every worker) a
// direct fit for what spec.md's completion pipe describes.
//
// The spec's original design writes a raw task-record pointer through the
// pipe. That is unsound across Go's garbage collector, so this
// implementation carries the 8-byte task ID instead; the reader looks the ID
// up in the engine's in-flight task table. The externally observable
// contract — FIFO per writer, no cross-worker ordering, non-blocking reader
// — is unchanged.
package pipe

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
)

// IDSize is the width of a task ID written to the pipe.
const IDSize = 8

// Pipe is a socketpair carrying 8-byte task IDs from worker goroutines to the
// reactor thread.
type Pipe struct {
	writeFD int
	readFD  int

	writeMu sync.Mutex // serializes writer-side sends, as spec.md requires
}

// New creates a connected, non-blocking-on-the-read-side socketpair.
func New() (*Pipe, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("pipe: socketpair: %w", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, fmt.Errorf("pipe: set nonblock: %w", err)
	}
	return &Pipe{readFD: fds[0], writeFD: fds[1]}, nil
}

// ReadFD returns the fd the reactor should register for readability.
func (p *Pipe) ReadFD() int { return p.readFD }

// WriteFD returns the write-side fd, exposed so tests can drive the pipe
// with raw byte counts that WriteID's fixed 8-byte contract cannot produce.
func (p *Pipe) WriteFD() int { return p.writeFD }

// WriteID writes a single 8-byte task ID. Writes are serialized across
// callers by an internal mutex, matching the engine-mutex-guarded pipe write
// in spec.md §4.2/§5. EAGAIN yields the goroutine and retries; EINTR retries
// immediately; any other error is returned to the caller, who is expected to
// log it and leave the task in the in-flight table for later recovery.
func (p *Pipe) WriteID(id uint64) error {
	var buf [IDSize]byte
	binary.LittleEndian.PutUint64(buf[:], id)

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	written := 0
	for written < IDSize {
		n, err := unix.Write(p.writeFD, buf[written:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				runtime.Gosched()
				continue
			}
			return fmt.Errorf("pipe: write id: %w", err)
		}
		written += n
	}
	return nil
}

// Read reads whatever bytes are currently available into buf, returning the
// count read. Non-blocking: returns (0, nil) on EAGAIN rather than an error,
// since "nothing to read right now" is not a failure.
func (p *Pipe) Read(buf []byte) (int, error) {
	n, err := unix.Read(p.readFD, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("pipe: read: %w", err)
	}
	return n, nil
}

// Close closes both ends of the pipe.
func (p *Pipe) Close() error {
	err1 := unix.Close(p.readFD)
	err2 := unix.Close(p.writeFD)
	if err1 != nil {
		return err1
	}
	return err2
}
