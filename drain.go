package aio

import (
	"encoding/binary"

	"github.com/ehrlich-b/go-aio/internal/pipe"
)

// drain reads up to maxEvents task IDs from the completion pipe and invokes
// each task's callback; IDs left unread keep the fd readable for the next
// invocation. It is installed as the Reactor's handler for EventAIO in
// Engine.Init.
//
// spec.md §4.4/§9 flags "a read returning a byte count not divisible by the
// record size" as a latent bug: a read landing mid-ID would, read literally,
// either desynchronize subsequent IDs or silently drop one. This
// implementation resolves it by keeping a small residue buffer (less than
// pipe.IDSize bytes) across invocations and prepending it to the next read,
// so a read that splits an ID across two epoll-readable events never loses
// or misreads one.
func (e *Engine) drain(fd int) error {
	limit := e.maxEvents * pipe.IDSize
	if limit <= 0 || limit > len(e.drainBuf) {
		limit = len(e.drainBuf)
	}
	n, err := e.compPipe.Read(e.drainBuf[:limit])
	if err != nil {
		e.log.Warnf("aio: completion pipe read failed: %v", err)
		return err
	}
	if n == 0 {
		return nil
	}

	data := append(e.residue, e.drainBuf[:n]...)

	offset := 0
	for offset+pipe.IDSize <= len(data) {
		id := binary.LittleEndian.Uint64(data[offset : offset+pipe.IDSize])
		e.completeTask(id)
		offset += pipe.IDSize
	}

	if offset < len(data) {
		e.residue = append(e.residue[:0], data[offset:]...)
	} else {
		e.residue = e.residue[:0]
	}

	return nil
}

// completeTask looks up id in the in-flight table, invokes its callback (the
// per-task override if set, else the engine default), decrements taskNum,
// and removes the table entry. In Go, "free" means making the *Task eligible
// for garbage collection once nothing else references it; there is no
// manual allocator to balance.
func (e *Engine) completeTask(id uint64) {
	e.inflightMu.Lock()
	t, ok := e.inflight[id]
	if ok {
		delete(e.inflight, id)
	}
	e.inflightMu.Unlock()

	if !ok {
		e.log.Warnf("aio: completion for unknown task id=%d", id)
		return
	}

	e.taskNum.Add(^uint64(0)) // atomic decrement

	cb := t.Callback
	if cb == nil {
		cb = e.callback
	}
	if cb != nil {
		cb(t)
	}
}
