package opt

import (
	_ "unsafe" // for linkname
)

// TrySpin performs one round of runtime active spinning if the scheduler
// allows it at this iteration count, and reports whether it did.
// Callers reset spins to zero when starting a new acquisition.
func TrySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

// nolint:all
//
//go:linkname runtime_canSpin sync.runtime_canSpin
//goland:noinspection ALL
func runtime_canSpin(i int) bool

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()
