//go:build hybridlock_disable_padding

package opt

import "sync/atomic"

// StateWord_ holds a packed lock state.
// Padding is force-disabled via the hybridlock_disable_padding build tag.
// Use: go build -tags=hybridlock_disable_padding
type StateWord_ struct {
	atomic.Uint64
}
