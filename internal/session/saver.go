package session

import (
	"context"
	"sync"
)

// saver serializes writes of one on-disk document through a single-slot
// coalescing state machine: idle, or saving with a pending flag. At most
// one write is ever in flight; mutations arriving mid-write set pending
// and are all absorbed into exactly one trailing write. A burst of N
// back-to-back mutations therefore costs at most two physical writes.
type saver struct {
	mu      sync.Mutex
	saving  bool
	pending bool
	waiters []chan error

	// write captures the latest in-memory state at call time.
	write func() error
}

func newSaver(write func() error) *saver {
	return &saver{write: write}
}

// Save returns once the caller's mutation is durably written, either by
// the write it performs itself or by the trailing write that absorbed it.
func (s *saver) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.saving {
		// A write is in flight; queue behind the trailing write instead
		// of starting a concurrent one.
		s.pending = true
		ch := make(chan error, 1)
		s.waiters = append(s.waiters, ch)
		s.mu.Unlock()

		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.saving = true
	s.mu.Unlock()

	err := s.write()

	for {
		s.mu.Lock()
		if !s.pending {
			s.saving = false
			s.mu.Unlock()
			return err
		}
		s.pending = false
		waiters := s.waiters
		s.waiters = nil
		s.mu.Unlock()

		trailErr := s.write()
		for _, ch := range waiters {
			ch <- trailErr
		}
	}
}
