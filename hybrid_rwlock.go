package hybridlock

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/llxisdsh/hybridlock/internal/opt"
)

// HybridRWLock is a reader-writer lock whose uncontended paths are a single
// compare-and-swap on one packed state word. Goroutines only park, on a
// reader or writer wait channel, when the lock cannot be granted.
//
// Properties:
//   - Many readers or one writer.
//   - Writer-preferred: once a writer waits, new readers wait too, and a
//     releasing writer hands the lock to another writer before readers.
//   - Waiting readers are woken as one batch.
//   - No FIFO among waiters of the same kind, no reentrancy, no upgrade.
//
// The zero value is an unlocked lock using the default runtime-semaphore
// wait channels. A HybridRWLock must not be copied after first use.
type HybridRWLock struct {
	_     noCopy
	state opt.StateWord_

	readers ReaderSignal
	writers WriterSignal

	// defaults used when no signal was configured
	readerSema SemaSignal
	writerSema SemaSignal

	noSpin   bool
	disposed atomic.Bool
}

// HybridRWLockConfig defines configurable options for HybridRWLock.
type HybridRWLockConfig struct {
	// readers is the wait channel for parked readers.
	// If nil, a runtime-semaphore signal embedded in the lock is used.
	readers ReaderSignal

	// writers is the wait channel for parked writers.
	// If nil, a runtime-semaphore signal embedded in the lock is used.
	writers WriterSignal

	// noSpin disables the short active spin before parking.
	noSpin bool
}

// WithReaderSignal sets the wait channel used to park readers.
func WithReaderSignal(s ReaderSignal) func(*HybridRWLockConfig) {
	return func(c *HybridRWLockConfig) {
		c.readers = s
	}
}

// WithWriterSignal sets the wait channel used to park writers.
func WithWriterSignal(s WriterSignal) func(*HybridRWLockConfig) {
	return func(c *HybridRWLockConfig) {
		c.writers = s
	}
}

// WithSpinning controls whether Enter spins briefly, re-reading the state
// word, before it registers as a waiter and parks. Enabled by default.
func WithSpinning(enabled bool) func(*HybridRWLockConfig) {
	return func(c *HybridRWLockConfig) {
		c.noSpin = !enabled
	}
}

// NewHybridRWLock creates a free lock.
//
// Usage:
//
//	l := NewHybridRWLock()
//	defer l.Dispose()
//
//	l.Enter(false)
//	read()
//	l.Leave(false)
func NewHybridRWLock(options ...func(*HybridRWLockConfig)) *HybridRWLock {
	var c HybridRWLockConfig
	for _, o := range options {
		o(&c)
	}
	return &HybridRWLock{
		readers: c.readers,
		writers: c.writers,
		noSpin:  c.noSpin,
	}
}

// Enter blocks until the lock is held in the requested mode:
// exclusive for a writer, shared for a reader.
//
// Entering a lock the calling goroutine already holds deadlocks or
// corrupts the counters; there is no reentrancy.
func (l *HybridRWLock) Enter(exclusive bool) {
	if l.disposed.Load() {
		panic("hybridlock: Enter on disposed HybridRWLock")
	}
	if exclusive {
		// Fast path: Free with nobody waiting.
		if l.state.CompareAndSwap(0, uint64(OwnedByWriter)) {
			return
		}
		for l.commit(waitToWrite) {
			l.parkWriter()
		}
		return
	}
	if l.state.CompareAndSwap(0, uint64(OwnedByReaders)|oneReaderReading) {
		return
	}
	for l.commit(waitToRead) {
		l.parkReader()
	}
}

// commit runs one CAS loop of an acquire transition and reports whether the
// caller registered itself as a waiter and must park.
func (l *HybridRWLock) commit(transition func(lockState) (lockState, bool)) bool {
	var spins int
	for {
		s := lockState(l.state.Load())
		next, wait := transition(s)
		if wait && !l.noSpin && opt.TrySpin(&spins) {
			continue
		}
		if l.state.CompareAndSwap(uint64(s), uint64(next)) {
			return wait
		}
	}
}

// TryEnter attempts to take the lock in the requested mode without
// blocking. It never registers a waiter, so a failed attempt leaves the
// state word untouched.
func (l *HybridRWLock) TryEnter(exclusive bool) bool {
	if l.disposed.Load() {
		panic("hybridlock: TryEnter on disposed HybridRWLock")
	}
	try := tryRead
	if exclusive {
		try = tryWrite
	}
	for {
		s := lockState(l.state.Load())
		next, ok := try(s)
		if !ok {
			return false
		}
		if l.state.CompareAndSwap(uint64(s), uint64(next)) {
			return true
		}
	}
}

// Leave releases a hold taken by Enter (or a successful TryEnter) with the
// same exclusivity. Leave without a matching Enter panics.
//
// Release is two-phase: the ownership transition is committed first, then
// the waiters to wake are claimed by a separate CAS, and only a successful
// claim signals a wait channel.
func (l *HybridRWLock) Leave(exclusive bool) {
	var w wakeup
	if exclusive {
		// Fast path: OwnedByWriter with nobody waiting.
		if l.state.CompareAndSwap(uint64(OwnedByWriter), 0) {
			return
		}
		w = l.release(doneWriting)
	} else {
		if l.state.CompareAndSwap(uint64(OwnedByReaders)|oneReaderReading, 0) {
			return
		}
		w = l.release(doneReading)
	}

	switch w {
	case wakeWriter:
		if l.claimWriter() {
			l.wakeWriter()
		}
	case wakeReaders:
		if n := l.claimReaders(); n > 0 {
			l.wakeReaders(n)
		}
	}
}

func (l *HybridRWLock) release(transition func(lockState) (lockState, wakeup)) wakeup {
	for {
		s := lockState(l.state.Load())
		next, w := transition(s)
		if l.state.CompareAndSwap(uint64(s), uint64(next)) {
			return w
		}
	}
}

func (l *HybridRWLock) claimWriter() bool {
	for {
		s := lockState(l.state.Load())
		next, ok := claimWriter(s)
		if !ok {
			return false
		}
		if l.state.CompareAndSwap(uint64(s), uint64(next)) {
			return true
		}
	}
}

func (l *HybridRWLock) claimReaders() int {
	for {
		s := lockState(l.state.Load())
		next, n := claimReaders(s)
		if n == 0 {
			return 0
		}
		if l.state.CompareAndSwap(uint64(s), uint64(next)) {
			return n
		}
	}
}

func (l *HybridRWLock) parkReader() {
	if l.readers != nil {
		l.readers.Wait()
		return
	}
	l.readerSema.Wait()
}

func (l *HybridRWLock) parkWriter() {
	if l.writers != nil {
		l.writers.Wait()
		return
	}
	l.writerSema.Wait()
}

func (l *HybridRWLock) wakeReaders(n int) {
	if l.readers != nil {
		l.readers.Release(n)
		return
	}
	l.readerSema.Release(n)
}

func (l *HybridRWLock) wakeWriter() {
	if l.writers != nil {
		l.writers.Set()
		return
	}
	l.writerSema.Set()
}

// Lock acquires the write lock. It is Enter(true).
func (l *HybridRWLock) Lock() {
	l.Enter(true)
}

// Unlock releases the write lock. It is Leave(true).
func (l *HybridRWLock) Unlock() {
	l.Leave(true)
}

// RLock acquires a read lock. It is Enter(false).
func (l *HybridRWLock) RLock() {
	l.Enter(false)
}

// RUnlock releases a read lock. It is Leave(false).
func (l *HybridRWLock) RUnlock() {
	l.Leave(false)
}

// RLocker returns a sync.Locker that calls RLock and RUnlock.
func (l *HybridRWLock) RLocker() sync.Locker {
	return (*rlocker)(l)
}

type rlocker HybridRWLock

func (r *rlocker) Lock()   { (*HybridRWLock)(r).RLock() }
func (r *rlocker) Unlock() { (*HybridRWLock)(r).RUnlock() }

// Snapshot atomically loads the state word.
func (l *HybridRWLock) Snapshot() LockState {
	return lockState(l.state.Load()).unpack()
}

// String returns "State=<mode>, RR=<n>, RW=<n>, WW=<n>" for the current state.
func (l *HybridRWLock) String() string {
	return l.Snapshot().String()
}

// Dispose releases the wait channels. Every Enter must have returned
// before Dispose is called; a goroutine still parked is never woken.
// Later calls to Enter panic. Dispose is idempotent.
//
// The returned error is non-nil only when a configured signal implementing
// io.Closer fails to close.
func (l *HybridRWLock) Dispose() error {
	if !l.disposed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if c, ok := l.readers.(io.Closer); ok {
		if e := c.Close(); e != nil {
			err = multierr.Append(err, errors.Wrap(e, "hybridlock: close reader signal"))
		}
	}
	if c, ok := l.writers.(io.Closer); ok {
		if e := c.Close(); e != nil {
			err = multierr.Append(err, errors.Wrap(e, "hybridlock: close writer signal"))
		}
	}
	return err
}
