package hybridlock

import (
	"fmt"
)

// Mode is the coarse ownership state of a HybridRWLock.
type Mode uint8

const (
	// Free means nobody holds the lock.
	Free Mode = iota
	// OwnedByWriter means a single writer holds the lock.
	OwnedByWriter
	// OwnedByReaders means one or more readers hold the lock.
	OwnedByReaders
	// OwnedByReadersWithWriterPending means readers hold the lock and at
	// least one writer is parked; new readers park too.
	OwnedByReadersWithWriterPending
	// ReservedForWriter means the lock is free of owners but earmarked for
	// a waiting writer, so new readers cannot sneak in ahead of it.
	ReservedForWriter
)

var modeNames = [...]string{
	Free:                            "Free",
	OwnedByWriter:                   "OwnedByWriter",
	OwnedByReaders:                  "OwnedByReaders",
	OwnedByReadersWithWriterPending: "OwnedByReadersWithWriterPending",
	ReservedForWriter:               "ReservedForWriter",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ============================================================================
// State word layout
// ============================================================================
//
//	bits  0-2  : mode
//	bits  3-22 : readers reading
//	bits 23-42 : readers waiting
//	bits 43-62 : writers waiting
//	bit  63    : unused
const (
	modeBits    = 3
	counterBits = 20

	modeMask   = uint64(1)<<modeBits - 1
	counterMax = uint64(1)<<counterBits - 1

	readersReadingShift = modeBits
	readersWaitingShift = readersReadingShift + counterBits
	writersWaitingShift = readersWaitingShift + counterBits

	readersReadingMask = counterMax << readersReadingShift
	readersWaitingMask = counterMax << readersWaitingShift
	writersWaitingMask = counterMax << writersWaitingShift

	oneReaderReading = uint64(1) << readersReadingShift
	oneReaderWaiting = uint64(1) << readersWaitingShift
	oneWriterWaiting = uint64(1) << writersWaitingShift
)

// lockState is the packed value stored in a HybridRWLock's state word.
// The zero value is Free with every counter at zero.
type lockState uint64

func packState(m Mode, readersReading, readersWaiting, writersWaiting uint64) lockState {
	if readersReading > counterMax || readersWaiting > counterMax || writersWaiting > counterMax {
		panic("hybridlock: counter out of range")
	}
	return lockState(uint64(m)&modeMask |
		readersReading<<readersReadingShift |
		readersWaiting<<readersWaitingShift |
		writersWaiting<<writersWaitingShift)
}

//go:nosplit
func (s lockState) mode() Mode {
	return Mode(uint64(s) & modeMask)
}

//go:nosplit
func (s lockState) withMode(m Mode) lockState {
	return lockState(uint64(s)&^modeMask | uint64(m))
}

//go:nosplit
func (s lockState) readersReading() uint64 {
	return (uint64(s) & readersReadingMask) >> readersReadingShift
}

//go:nosplit
func (s lockState) readersWaiting() uint64 {
	return (uint64(s) & readersWaitingMask) >> readersWaitingShift
}

//go:nosplit
func (s lockState) writersWaiting() uint64 {
	return (uint64(s) & writersWaitingMask) >> writersWaitingShift
}

func (s lockState) incReadersReading() lockState {
	if s.readersReading() == counterMax {
		panic("hybridlock: too many concurrent readers")
	}
	return s + lockState(oneReaderReading)
}

func (s lockState) decReadersReading() lockState {
	if s.readersReading() == 0 {
		panic("hybridlock: readers reading underflow")
	}
	return s - lockState(oneReaderReading)
}

func (s lockState) incReadersWaiting() lockState {
	if s.readersWaiting() == counterMax {
		panic("hybridlock: too many waiting readers")
	}
	return s + lockState(oneReaderWaiting)
}

func (s lockState) incWritersWaiting() lockState {
	if s.writersWaiting() == counterMax {
		panic("hybridlock: too many waiting writers")
	}
	return s + lockState(oneWriterWaiting)
}

func (s lockState) decWritersWaiting() lockState {
	if s.writersWaiting() == 0 {
		panic("hybridlock: writers waiting underflow")
	}
	return s - lockState(oneWriterWaiting)
}

// unpack converts the packed word into its public value form.
func (s lockState) unpack() LockState {
	return LockState{
		Mode:           s.mode(),
		ReadersReading: int(s.readersReading()),
		ReadersWaiting: int(s.readersWaiting()),
		WritersWaiting: int(s.writersWaiting()),
	}
}

// LockState is a point-in-time copy of a HybridRWLock's state word.
type LockState struct {
	Mode           Mode
	ReadersReading int
	ReadersWaiting int
	WritersWaiting int
}

// String formats the state as "State=<mode>, RR=<n>, RW=<n>, WW=<n>".
func (s LockState) String() string {
	return fmt.Sprintf("State=%s, RR=%d, RW=%d, WW=%d",
		s.Mode, s.ReadersReading, s.ReadersWaiting, s.WritersWaiting)
}

// ============================================================================
// Transitions
// ============================================================================
//
// Every function below is pure: it maps the word read at the start of a CAS
// iteration to the word the caller tries to commit. The atomic cell is only
// touched by HybridRWLock.

type wakeup uint8

const (
	wakeNone wakeup = iota
	wakeWriter
	wakeReaders
)

// waitToWrite returns the state a writer commits and whether it must park.
func waitToWrite(s lockState) (lockState, bool) {
	switch s.mode() {
	case Free, ReservedForWriter:
		return s.withMode(OwnedByWriter), false
	case OwnedByWriter:
		return s.incWritersWaiting(), true
	case OwnedByReaders, OwnedByReadersWithWriterPending:
		return s.withMode(OwnedByReadersWithWriterPending).incWritersWaiting(), true
	default:
		panic("hybridlock: invalid lock state " + s.unpack().String())
	}
}

// waitToRead returns the state a reader commits and whether it must park.
// Readers never park behind other readers.
func waitToRead(s lockState) (lockState, bool) {
	switch s.mode() {
	case Free:
		return s.withMode(OwnedByReaders).incReadersReading(), false
	case OwnedByReaders:
		return s.incReadersReading(), false
	case OwnedByWriter, OwnedByReadersWithWriterPending, ReservedForWriter:
		return s.incReadersWaiting(), true
	default:
		panic("hybridlock: invalid lock state " + s.unpack().String())
	}
}

// tryWrite and tryRead are the non-parking halves of waitToWrite and
// waitToRead: they report false instead of registering a waiter.
func tryWrite(s lockState) (lockState, bool) {
	next, wait := waitToWrite(s)
	return next, !wait
}

func tryRead(s lockState) (lockState, bool) {
	next, wait := waitToRead(s)
	return next, !wait
}

// doneWriting releases a writer. Waiting writers win over waiting readers.
// The waiting writer count is left for claimWriter to decrement.
func doneWriting(s lockState) (lockState, wakeup) {
	if s.mode() != OwnedByWriter || s.readersReading() != 0 {
		panic("hybridlock: Leave(true) without a matching Enter(true): " + s.unpack().String())
	}
	switch {
	case s.writersWaiting() > 0:
		return s.withMode(ReservedForWriter), wakeWriter
	case s.readersWaiting() > 0:
		return s.withMode(Free), wakeReaders
	default:
		return s.withMode(Free), wakeNone
	}
}

// doneReading releases one reader. Only the last reader out changes mode.
func doneReading(s lockState) (lockState, wakeup) {
	if m := s.mode(); (m != OwnedByReaders && m != OwnedByReadersWithWriterPending) ||
		s.readersReading() == 0 {
		panic("hybridlock: Leave(false) without a matching Enter(false): " + s.unpack().String())
	}
	s = s.decReadersReading()
	switch {
	case s.readersReading() > 0:
		return s, wakeNone
	case s.writersWaiting() > 0:
		return s.withMode(ReservedForWriter), wakeWriter
	case s.readersWaiting() > 0:
		// Readers that parked while a previous writer handed the lock to a
		// barging reader; the claim that should have woken them lost the race.
		return s.withMode(Free), wakeReaders
	default:
		return s.withMode(Free), wakeNone
	}
}

// claimWriter removes exactly one waiting writer if the lock is still
// reserved for one. At most one writer is signaled per successful claim.
func claimWriter(s lockState) (lockState, bool) {
	if s.mode() != ReservedForWriter || s.writersWaiting() == 0 {
		return s, false
	}
	return s.decWritersWaiting(), true
}

// claimReaders removes the whole batch of waiting readers if they would be
// admitted right now, and reports how many were removed.
func claimReaders(s lockState) (lockState, int) {
	if m := s.mode(); m != Free && m != OwnedByReaders {
		return s, 0
	}
	n := s.readersWaiting()
	if n == 0 {
		return s, 0
	}
	return lockState(uint64(s) &^ readersWaitingMask), int(n)
}
