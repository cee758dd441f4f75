package aio

import (
	"bytes"
	"net/netip"

	"github.com/ehrlich-b/go-aio/internal/resolver"
)

// Type identifies what kind of work a Task carries.
type Type int

const (
	// Read performs a positioned read at Offset.
	Read Type = iota
	// Write performs a positioned or sequential write.
	Write
	// DNSLookup resolves a hostname to a single bounded-buffer address.
	DNSLookup
	// GetAddrInfo resolves a hostname (and optional service) to every
	// matching address.
	GetAddrInfo
	// reserved for future task variants, mirrors spec.md's "plus reserved
	// extensibility"
)

func (t Type) String() string {
	switch t {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case DNSLookup:
		return "DNSLookup"
	case GetAddrInfo:
		return "GetAddrInfo"
	default:
		return "Unknown"
	}
}

// WriteMode disambiguates the overloaded offset==0 write convention spec.md
// flags as a wart: an offset of 0 has historically meant "append
// sequentially" rather than "write at position 0". WriteSequential keeps
// that legacy meaning explicit; WritePositioned with Offset 0 writes at byte 0.
type WriteMode int

const (
	WriteSequential WriteMode = iota
	WritePositioned
)

// Callback is invoked by the drain handler after a task completes, on the
// reactor goroutine. It must not block.
type Callback func(t *Task)

// AddrInfoHints narrows a GetAddrInfo resolution.
type AddrInfoHints struct {
	Family resolver.Family
}

// AddrInfoRequest is the concrete, Go-native payload behind spec.md's opaque
// "req" pointer for the GETADDRINFO variant.
type AddrInfoRequest struct {
	Host    string
	Service string
	Hints   AddrInfoHints

	// Results is filled in place by the worker executor, matching the
	// "writes the request block in place" contract.
	Results []resolver.Result
}

// Task is one unit of asynchronous work: a read, a write, or a name
// resolution, submitted through the façade in submit.go, executed by a
// worker in worker.go, and delivered back through internal/pipe to the
// handler in drain.go.
//
// Exclusive ownership of a Task's mutable fields passes in one direction at
// a time: submitter -> thread pool -> worker -> completion pipe -> drain
// handler. Nothing reads Task after the worker hands its ID to the pipe
// until the drain handler looks it up, because only the drain handler reads
// the in-flight table after a worker publishes into it.
type Task struct {
	ID   uint64
	Type Type

	// Read/Write fields.
	FD        int
	Buf       []byte
	NBytes    int
	Offset    int64
	WriteMode WriteMode

	// DNSLookup fields.
	Family resolver.Family

	// GetAddrInfo fields.
	Req *AddrInfoRequest

	// Result fields, populated by the worker before the task is handed to
	// the completion pipe.
	Ret int
	Err error

	// Callback overrides the engine's default callback for this task, if
	// set.
	Callback Callback
}

// addr returns the resolved textual address written into Buf by a completed
// DNSLookup task. ret is 0 on a successful resolver path (see
// execDNSLookup), so the written length is recovered from Buf itself: the
// worker zero-fills Buf before the resolver call, so the address runs up to
// the first NUL (or the whole buffer, if the resolver filled it exactly).
func (t *Task) addr() string {
	if t.Err != nil || len(t.Buf) == 0 {
		return ""
	}
	n := bytes.IndexByte(t.Buf, 0)
	if n < 0 {
		n = len(t.Buf)
	}
	return string(t.Buf[:n])
}

// Addr returns the resolved textual address for a completed DNSLookup task.
func (t *Task) Addr() string {
	return t.addr()
}

// AddrPort returns a netip.AddrPort built from the first GetAddrInfo result,
// or the zero value if Req is nil or has no results.
func (t *Task) AddrPort() netip.AddrPort {
	if t.Req == nil || len(t.Req.Results) == 0 {
		return netip.AddrPort{}
	}
	r := t.Req.Results[0]
	return netip.AddrPortFrom(r.Addr, r.Port)
}
