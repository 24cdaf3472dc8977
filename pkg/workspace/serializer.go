package workspace

import "sync"

// Serializer enforces per-path mutual exclusion: all mutating work for
// a given path runs sequentially regardless of the caller's concurrency
// level. Different paths proceed in parallel.
//
// Implementation: a map from path to the tail of a wait chain. Each
// Enqueue waits on the previous tail, runs, then releases its own. A
// failed task never blocks the chain; the release happens on every
// exit path.
type Serializer struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

// NewSerializer creates an empty serializer.
func NewSerializer() *Serializer {
	return &Serializer{tails: make(map[string]chan struct{})}
}

// Enqueue runs fn after all previously enqueued work for path has
// finished, and returns fn's error. Work for other paths is unaffected.
func (s *Serializer) Enqueue(path string, fn func() error) error {
	s.mu.Lock()
	prev := s.tails[path]
	done := make(chan struct{})
	s.tails[path] = done
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}
	defer func() {
		close(done)
		s.mu.Lock()
		// Drop the entry once the chain drains to avoid unbounded growth.
		if s.tails[path] == done {
			delete(s.tails, path)
		}
		s.mu.Unlock()
	}()

	return fn()
}
