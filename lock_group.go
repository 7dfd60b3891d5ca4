package hybridlock

import (
	"github.com/llxisdsh/pb"
)

// HybridRWLockGroup allows shared reader-writer locking on arbitrary keys.
// Each key gets its own HybridRWLock, created on first use and removed once
// the last holder or waiter leaves.
//
// Usage:
//
//	var group HybridRWLockGroup[string]
//
//	// Readers
//	group.RLock("config")
//	read(config)
//	group.RUnlock("config")
//
//	// Writer
//	group.Lock("config")
//	write(config)
//	group.Unlock("config")
type HybridRWLockGroup[K comparable] struct {
	_ noCopy
	m pb.MapOf[K, *lockGroupEntry]
}

type lockGroupEntry struct {
	mu HybridRWLock
	// ref counts holders and waiters; only mutated inside ProcessEntry.
	ref int32
}

// Enter acquires the lock for k in the requested mode.
func (g *HybridRWLockGroup[K]) Enter(k K, exclusive bool) {
	v, _ := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *lockGroupEntry]) (*pb.EntryOf[K, *lockGroupEntry], *lockGroupEntry, bool) {
			if l != nil {
				l.Value.ref++
				return l, l.Value, true
			}
			e := &lockGroupEntry{ref: 1}
			return &pb.EntryOf[K, *lockGroupEntry]{Value: e}, e, false
		},
	)
	v.mu.Enter(exclusive)
}

// Leave releases the lock for k taken with the same exclusivity.
// Leaving a key that is not held panics.
func (g *HybridRWLockGroup[K]) Leave(k K, exclusive bool) {
	v, ok := g.m.Load(k)
	if !ok {
		panic("hybridlock: Leave of a key that is not held")
	}
	v.mu.Leave(exclusive)

	g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *lockGroupEntry]) (*pb.EntryOf[K, *lockGroupEntry], *lockGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.ref--
			if l.Value.ref <= 0 {
				return nil, l.Value, true
			}
			return l, l.Value, true
		},
	)
}

func (g *HybridRWLockGroup[K]) Lock(k K)    { g.Enter(k, true) }
func (g *HybridRWLockGroup[K]) Unlock(k K)  { g.Leave(k, true) }
func (g *HybridRWLockGroup[K]) RLock(k K)   { g.Enter(k, false) }
func (g *HybridRWLockGroup[K]) RUnlock(k K) { g.Leave(k, false) }

// Len returns the number of keys currently held or waited on.
func (g *HybridRWLockGroup[K]) Len() int {
	n := 0
	g.m.Range(func(_ K, _ *lockGroupEntry) bool {
		n++
		return true
	})
	return n
}

// Describe returns the debug string of the lock for k, or the free state's
// string if no lock exists for k.
func (g *HybridRWLockGroup[K]) Describe(k K) string {
	if v, ok := g.m.Load(k); ok {
		return v.mu.String()
	}
	return LockState{}.String()
}
