package hybridlock

import (
	"sync"
	"testing"
)

//go:noinline
func criticalSection() {}

func BenchmarkHybridRWLock_Write(b *testing.B) {
	var l HybridRWLock
	for b.Loop() {
		l.Enter(true)
		criticalSection()
		l.Leave(true)
	}
}

func BenchmarkRWMutex_Write(b *testing.B) {
	var mu sync.RWMutex
	for b.Loop() {
		mu.Lock()
		criticalSection()
		mu.Unlock()
	}
}

func BenchmarkHybridRWLock_ReadParallel(b *testing.B) {
	var l HybridRWLock
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Enter(false)
			criticalSection()
			l.Leave(false)
		}
	})
}

func BenchmarkRWMutex_ReadParallel(b *testing.B) {
	var mu sync.RWMutex
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			mu.RLock()
			criticalSection()
			mu.RUnlock()
		}
	})
}

func BenchmarkHybridRWLock_Mixed(b *testing.B) {
	var l HybridRWLock
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			exclusive := i%10 == 0
			l.Enter(exclusive)
			criticalSection()
			l.Leave(exclusive)
			i++
		}
	})
}

func BenchmarkRWMutex_Mixed(b *testing.B) {
	var mu sync.RWMutex
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				mu.Lock()
				criticalSection()
				mu.Unlock()
			} else {
				mu.RLock()
				criticalSection()
				mu.RUnlock()
			}
			i++
		}
	})
}
