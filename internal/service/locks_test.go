package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionLocksMutualExclusion(t *testing.T) {
	l := newSessionLocks()

	// Unsynchronized counter; only the per-id lock protects it.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := l.acquire("session-a")
			counter++
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestSessionLocksDropIdleEntries(t *testing.T) {
	l := newSessionLocks()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := l.acquire("session-a")
			release()
		}()
	}
	release := l.acquire("session-b")
	release()
	wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

func TestSessionLocksIndependentIDs(t *testing.T) {
	l := newSessionLocks()

	releaseA := l.acquire("session-a")
	done := make(chan struct{})
	go func() {
		releaseB := l.acquire("session-b")
		releaseB()
		close(done)
	}()

	// A held lock on one id must not block another id.
	<-done
	releaseA()
}
