package domain

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("chat:1")
			defer unlock()
			// Unsynchronized read-modify-write; the race detector flags it
			// unless the lock holds.
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	req.Equal(50, counter)
	req.Zero(locks.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex()

	// Given key a is held
	unlockA := locks.Lock("a")

	// When key b is locked, it does not wait for a
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()
	<-done

	req.Equal(1, locks.Len())
	unlockA()
	req.Zero(locks.Len())
}

func TestRandomSelector_PicksACandidate(t *testing.T) {
	req := require.New(t)
	candidates := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	for i := 0; i < 20; i++ {
		req.Contains(candidates, RandomSelector{}.Pick(candidates))
	}
}
