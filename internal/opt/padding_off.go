//go:build (amd64 || 386 || arm || mips || mipsle || wasm) && !hybridlock_disable_padding && !hybridlock_enable_padding

package opt

import "sync/atomic"

// StateWord_ holds a packed lock state.
// Padding is disabled by default for:
// - amd64
// - 32-bit architectures (386, arm, mips, mipsle, wasm)
type StateWord_ struct {
	atomic.Uint64
}
