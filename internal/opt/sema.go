package opt

import (
	_ "unsafe" // for linkname
)

// Sema is a zero-allocation counting semaphore.
// It is a direct wrapper around runtime.semacquire/semrelease, so a Release
// issued before the matching Acquire is remembered.
type Sema uint32

// Acquire blocks until a permit is available and consumes it.
func (s *Sema) Acquire() {
	runtime_semacquire((*uint32)(s))
}

// Release hands out one permit, waking a parked goroutine if there is one.
func (s *Sema) Release() {
	runtime_semrelease((*uint32)(s), false, 0)
}

// ReleaseN hands out n permits.
func (s *Sema) ReleaseN(n int) {
	for range n {
		runtime_semrelease((*uint32)(s), false, 0)
	}
}

//go:linkname runtime_semacquire sync.runtime_Semacquire
func runtime_semacquire(s *uint32)

//go:linkname runtime_semrelease sync.runtime_Semrelease
func runtime_semrelease(s *uint32, handoff bool, skipframes int)
