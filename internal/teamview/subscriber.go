package teamview

import "sync"

type subscriber struct {
	ch     chan Snapshot
	mu     sync.Mutex
	closed bool
}

// trySend delivers without blocking; a slow subscriber gets the next snapshot instead
func (s *subscriber) trySend(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
