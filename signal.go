package hybridlock

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/llxisdsh/hybridlock/internal/opt"
)

// ReaderSignal parks waiting readers and wakes them in batches.
//
// Release(n) must wake exactly n goroutines that called (or will call) Wait;
// a Release issued before the matching Wait must not be lost.
// If the signal also implements io.Closer, HybridRWLock.Dispose closes it.
type ReaderSignal interface {
	Wait()
	Release(n int)
}

// WriterSignal parks waiting writers and wakes them one at a time.
//
// Each Set must wake exactly one goroutine that called (or will call) Wait.
// If the signal also implements io.Closer, HybridRWLock.Dispose closes it.
type WriterSignal interface {
	Wait()
	Set()
}

// SemaSignal is the default wait channel of a HybridRWLock, backed by the
// runtime semaphore. It satisfies both ReaderSignal and WriterSignal.
//
// It is zero-value usable and never allocates.
type SemaSignal struct {
	_    noCopy
	sema opt.Sema
}

// Wait parks the calling goroutine until a permit is released.
func (s *SemaSignal) Wait() {
	s.sema.Acquire()
}

// Release wakes n waiters.
func (s *SemaSignal) Release(n int) {
	s.sema.ReleaseN(n)
}

// Set wakes one waiter.
func (s *SemaSignal) Set() {
	s.sema.Release()
}

// ErrSignalBusy is returned by CondSignal.Close while goroutines are still
// parked on it.
var ErrSignalBusy = errors.New("hybridlock: signal closed with parked waiters")

// CondSignal is a wait channel built on sync.Cond. It counts permits like
// SemaSignal but can tell, on Close, whether goroutines are still parked.
//
// Use it with WithReaderSignal / WithWriterSignal to make Dispose report
// the caller obligation that all Enter calls have returned.
type CondSignal struct {
	_       noCopy
	mu      sync.Mutex
	cond    sync.Cond
	permits int
	waiters int
	closed  bool
}

// NewCondSignal creates a CondSignal with no permits.
func NewCondSignal() *CondSignal {
	s := &CondSignal{}
	s.cond.L = &s.mu
	return s
}

// Wait parks until a permit is available and consumes it.
func (s *CondSignal) Wait() {
	s.mu.Lock()
	s.waiters++
	for s.permits == 0 {
		s.cond.Wait()
	}
	s.permits--
	s.waiters--
	s.mu.Unlock()
}

// Release hands out n permits.
func (s *CondSignal) Release(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.permits += n
	s.mu.Unlock()
	if n == 1 {
		s.cond.Signal()
		return
	}
	s.cond.Broadcast()
}

// Set hands out one permit.
func (s *CondSignal) Set() {
	s.Release(1)
}

// Waiters returns the number of goroutines currently parked.
func (s *CondSignal) Waiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters
}

// Close marks the signal closed. It does not wake anybody.
func (s *CondSignal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.waiters > 0 {
		return errors.Wrapf(ErrSignalBusy, "%d parked", s.waiters)
	}
	return nil
}
