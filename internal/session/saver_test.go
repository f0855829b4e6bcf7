package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaverSingleWrite(t *testing.T) {
	var writes int32
	s := newSaver(func() error {
		atomic.AddInt32(&writes, 1)
		return nil
	})

	require.NoError(t, s.Save(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&writes))
}

func TestSaverCoalescesBurstIntoTwoWrites(t *testing.T) {
	var writes int32
	gate := make(chan struct{})
	s := newSaver(func() error {
		if atomic.AddInt32(&writes, 1) == 1 {
			<-gate
		}
		return nil
	})

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Save(context.Background()) }()

	// Wait for the first write to be in flight.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&writes) == 1
	}, time.Second, time.Millisecond)

	const burst = 10
	var wg sync.WaitGroup
	errs := make([]error, burst)
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Save(context.Background())
		}(i)
	}

	// All burst callers must be queued behind the trailing write before
	// the in-flight one is released.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.waiters) == burst
	}, time.Second, time.Millisecond)

	close(gate)
	wg.Wait()
	require.NoError(t, <-firstDone)

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&writes),
		"a burst behind one in-flight write coalesces into exactly one trailing write")
}

func TestSaverResolvesAfterDurableWrite(t *testing.T) {
	var order []string
	var mu sync.Mutex
	gate := make(chan struct{})
	var writes int32
	s := newSaver(func() error {
		if atomic.AddInt32(&writes, 1) == 1 {
			<-gate
		}
		mu.Lock()
		order = append(order, "write")
		mu.Unlock()
		return nil
	})

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Save(context.Background()) }()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&writes) == 1
	}, time.Second, time.Millisecond)

	secondDone := make(chan error, 1)
	go func() { secondDone <- s.Save(context.Background()) }()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.waiters) == 1
	}, time.Second, time.Millisecond)

	close(gate)
	require.NoError(t, <-secondDone)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"write", "write"}, order,
		"the second caller resolves only after the trailing write completed")
}

func TestSaverContextCancelWhileQueued(t *testing.T) {
	gate := make(chan struct{})
	var writes int32
	s := newSaver(func() error {
		if atomic.AddInt32(&writes, 1) == 1 {
			<-gate
		}
		return nil
	})

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Save(context.Background()) }()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&writes) == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	queuedDone := make(chan error, 1)
	go func() { queuedDone <- s.Save(ctx) }()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.waiters) == 1
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-queuedDone, context.Canceled)

	close(gate)
	require.NoError(t, <-firstDone)
}
