package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	t.Parallel()

	locks := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("agent-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	t.Parallel()

	locks := New()

	unlockA := locks.Lock("a")
	// Locking a different key must not block.
	unlockB := locks.Lock("b")
	unlockB()
	unlockA()
}
