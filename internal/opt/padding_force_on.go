//go:build hybridlock_enable_padding

package opt

import (
	"sync/atomic"
	"unsafe"
)

// StateWord_ holds a packed lock state on its own cache line.
// Padding is force-enabled via the hybridlock_enable_padding build tag.
// Use: go build -tags=hybridlock_enable_padding
type StateWord_ struct {
	atomic.Uint64
	_ [(CacheLineSize_ - unsafe.Sizeof(atomic.Uint64{})%CacheLineSize_) % CacheLineSize_]byte
}
