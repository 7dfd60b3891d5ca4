package opt

import (
	"sync"
	"testing"
	"time"
	"unsafe"
)

func TestSemaWrapper(t *testing.T) {
	var s Sema

	// 1. Basic block/unblock
	done := make(chan struct{})
	go func() {
		s.Acquire()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Acquire returned before Release")
	case <-time.After(50 * time.Millisecond):
		// OK
	}

	s.Release()
	select {
	case <-done:
		// OK
	case <-time.After(50 * time.Millisecond):
		t.Fatal("Acquire did not return after Release")
	}

	// 2. Multiple waiters, released as one batch
	var wg sync.WaitGroup
	n := 10
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			s.Acquire()
		}()
	}

	// Give them time to block
	time.Sleep(50 * time.Millisecond)

	s.ReleaseN(n)

	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()

	select {
	case <-ch:
		// OK
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Not all waiters woke up")
	}
}

func TestSemaReleaseBeforeAcquire(t *testing.T) {
	var s Sema
	s.Release()
	s.Release()

	done := make(chan struct{})
	go func() {
		s.Acquire()
		s.Acquire()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("permits released before Acquire were lost")
	}
}

func TestTrySpinBounded(t *testing.T) {
	var spins int
	for range 1000 {
		if !TrySpin(&spins) {
			return
		}
	}
	t.Fatalf("TrySpin never gave up, spins=%d", spins)
}

func TestStateWordAlignment(t *testing.T) {
	var w StateWord_
	if size := unsafe.Sizeof(w); size != 8 && size%CacheLineSize_ != 0 {
		t.Fatalf("StateWord_ size = %d, want 8 or a multiple of %d", size, CacheLineSize_)
	}
	w.Store(42)
	if !w.CompareAndSwap(42, 7) || w.Load() != 7 {
		t.Fatal("StateWord_ does not behave as an atomic word")
	}
}
