package logger

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// switchWriter forwards to the sinks of the most recent Init. Loggers derived
// before a reload keep writing through it, so they follow the new sinks.
type switchWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}

func (s *switchWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch w := s.w.(type) {
	case nil:
		return len(p), nil
	case zerolog.LevelWriter:
		return w.WriteLevel(level, p)
	default:
		return w.Write(p)
	}
}

// swap installs w and returns once no write to the previous writer is in
// flight, so the caller may close it.
func (s *switchWriter) swap(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// switchHook runs the hook installed by the most recent Init, if any.
type switchHook struct {
	mu   sync.RWMutex
	hook zerolog.Hook
}

func (s *switchHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hook != nil {
		s.hook.Run(e, level, msg)
	}
}

func (s *switchHook) swap(h zerolog.Hook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}
