package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalRWMutexSerializes(t *testing.T) {
	mutex := OptionalRWMutex{UseMutex: true}
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mutex.Lock()
				counter++
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	mutex.RLock()
	defer mutex.RUnlock()
	require.Equal(t, 16000, counter)
}

func TestOptionalRWMutexDisabled(t *testing.T) {
	mutex := OptionalRWMutex{}

	// Without UseMutex nothing is held, so nested locking must not deadlock
	mutex.Lock()
	mutex.Lock()
	mutex.RLock()
	mutex.Unlock()
	mutex.Unlock()
	mutex.RUnlock()

	require.True(t, mutex.Mutex.TryLock())
	mutex.Mutex.Unlock()
}
