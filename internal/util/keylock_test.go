package util

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	const goroutines = 50

	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			unlock := km.Lock("progress:1:1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Fatalf("counter = %d, want %d", counter, goroutines)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("lock:1:1")
	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("lock:2:1")
		unlockB()
		close(done)
	}()
	<-done // 不同 key 在 A 未释放时就能拿到
	unlockA()
}

// 条目引用计数归零后回收
func TestKeyedMutexReclaimsEntries(t *testing.T) {
	km := NewKeyedMutex()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("attempt:x")
			unlock()
		}()
	}
	wg.Wait()

	km.mu.Lock()
	remaining := len(km.locks)
	km.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("entries = %d, want all reclaimed", remaining)
	}
}
