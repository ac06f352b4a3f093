package logger

import (
	"io"
	"sync"
	"sync/atomic"
)

// consoleSink queues writes for a background goroutine. Write never blocks:
// when the queue is full the entry is dropped and counted.
type consoleSink struct {
	out   io.Writer
	queue chan []byte
	idle  chan struct{}

	closeMu sync.RWMutex
	closing bool
	dropped atomic.Uint64
}

func newConsoleSink(out io.Writer, size int) *consoleSink {
	s := &consoleSink{
		out:   out,
		queue: make(chan []byte, size),
		idle:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *consoleSink) Write(p []byte) (int, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()

	if s.closing {
		return len(p), nil
	}

	entry := append([]byte(nil), p...)
	select {
	case s.queue <- entry:
	default:
		s.dropped.Add(1)
	}
	return len(p), nil
}

func (s *consoleSink) run() {
	defer close(s.idle)
	for entry := range s.queue {
		_, _ = s.out.Write(entry)
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (s *consoleSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close flushes queued entries and stops the goroutine. Later writes are
// discarded.
func (s *consoleSink) Close() error {
	s.closeMu.Lock()
	if s.closing {
		s.closeMu.Unlock()
		return nil
	}
	s.closing = true
	close(s.queue)
	s.closeMu.Unlock()

	<-s.idle
	return nil
}
