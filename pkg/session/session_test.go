package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachineLifecycle(t *testing.T) {
	m := New("recording")
	assert.Equal(t, "recording", m.Name())
	assert.Equal(t, Idle, m.State())
	assert.False(t, m.Active())

	assert.True(t, m.TryEnter())
	assert.True(t, m.Active())
	assert.Equal(t, "active", m.State().String())

	assert.False(t, m.TryEnter(), "re-entry must be refused")

	m.Leave()
	assert.False(t, m.Active())
	m.Leave()
	assert.Equal(t, Idle, m.State())

	assert.True(t, m.TryEnter())
}

func TestMachineSingleWinner(t *testing.T) {
	m := New("playback")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.TryEnter() {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}
