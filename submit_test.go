package aio

import "testing"

func TestWriteAtOffsetZeroOverwritesRatherThanAppends(t *testing.T) {
	e, reactor := newTestEngine(t)
	f := tempFile(t)
	defer f.Close()

	// Seed the file via WriteAt so its WriteMode (always WritePositioned) is
	// not in question, then issue a second WriteAt at the same offset 0 and
	// confirm it overwrote in place rather than appending after the seed.
	if _, err := e.WriteAt(int(f.Fd()), []byte("aaaa"), 4, 0); err != nil {
		t.Fatalf("seed WriteAt failed: %v", err)
	}
	waitForPipe(t, e, reactor)

	if _, err := e.WriteAt(int(f.Fd()), []byte("bb"), 2, 0); err != nil {
		t.Fatalf("second WriteAt failed: %v", err)
	}
	waitForPipe(t, e, reactor)

	got := make([]byte, 4)
	n, _ := f.ReadAt(got, 0)
	if string(got[:n]) != "bbaa" {
		t.Errorf("expected WriteAt(offset=0) to overwrite in place, got %q", got[:n])
	}
}

func TestWriteSequentialIgnoresOffset(t *testing.T) {
	e, reactor := newTestEngine(t)
	f := tempFile(t)
	defer f.Close()

	if _, err := e.Write(int(f.Fd()), []byte("abc"), 3, 0); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	waitForPipe(t, e, reactor)

	if _, err := e.Write(int(f.Fd()), []byte("def"), 3, 0); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
	waitForPipe(t, e, reactor)

	got := make([]byte, 6)
	n, _ := f.ReadAt(got, 0)
	if string(got[:n]) != "abcdef" {
		t.Errorf("expected Write(offset=0) to append sequentially both times, got %q", got[:n])
	}
}

func TestDispatchAssignsMonotonicIDs(t *testing.T) {
	e, _ := newTestEngine(t)
	f := tempFile(t)
	defer f.Close()

	id1, err := e.Write(int(f.Fd()), []byte("a"), 1, 1)
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	id2, err := e.Write(int(f.Fd()), []byte("b"), 1, 2)
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("expected monotonically increasing IDs, got %d then %d", id1, id2)
	}
}

func TestDispatchFailureDoesNotPublishToInflight(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Free()

	_, err := e.Dispatch(&Task{Type: Read})
	if err == nil {
		t.Fatal("expected dispatch on a freed engine to fail")
	}

	e.inflightMu.Lock()
	n := len(e.inflight)
	e.inflightMu.Unlock()
	if n != 0 {
		t.Errorf("expected nothing published to in-flight table on failed dispatch, got %d entries", n)
	}

	// re-init so the test harness's deferred Free (registered by
	// newTestEngine) succeeds.
	if err := e.Init(WithReactor(NewMockReactor())); err != nil {
		t.Fatalf("re-init failed: %v", err)
	}
}
