package service

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"servicehost/internal/logger"
)

// ConsoleManager emulates the service manager for interactive runs and for
// hosts where an init system supervises the process through signals.
// SIGINT is delivered as Stop and SIGTERM as Shutdown.
type ConsoleManager struct {
	notify     func(c chan<- os.Signal, sig ...os.Signal)
	stopNotify func(c chan<- os.Signal)

	mu      sync.Mutex
	handler ControlHandler
	sigChan chan os.Signal
	done    chan struct{}
	last    Status
}

// NewConsoleManager creates a ConsoleManager listening for process signals.
func NewConsoleManager() *ConsoleManager {
	return &ConsoleManager{
		notify:     signal.Notify,
		stopNotify: signal.Stop,
	}
}

// Dispatch runs main on the calling goroutine.
func (m *ConsoleManager) Dispatch(name string, main func()) error {
	log := logger.WithComponent("console-service")
	log.Info().Str("service", name).Msg("Running in console mode")

	main()

	m.release()
	return nil
}

// Register starts translating process signals into control requests.
func (m *ConsoleManager) Register(name string, handler ControlHandler) (StatusReporter, error) {
	if handler == nil {
		return nil, errors.New("nil control handler")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handler != nil {
		return nil, ErrAlreadyRegistered
	}

	m.handler = handler
	m.sigChan = make(chan os.Signal, 1)
	m.done = make(chan struct{})
	m.notify(m.sigChan, syscall.SIGINT, syscall.SIGTERM)

	go m.deliver(name, handler, m.sigChan, m.done)

	return m, nil
}

func (m *ConsoleManager) deliver(name string, handler ControlHandler, sigChan <-chan os.Signal, done <-chan struct{}) {
	log := logger.WithComponent("console-service")

	for {
		select {
		case <-done:
			return
		case sig := <-sigChan:
			cmd := Stop
			if sig == syscall.SIGTERM {
				cmd = Shutdown
			}
			log.Info().
				Str("service", name).
				Str("signal", sig.String()).
				Stringer("control", cmd).
				Msg("Received shutdown signal")

			if err := handler(cmd); err != nil {
				log.Warn().Err(err).Stringer("control", cmd).Msg("Control request rejected")
			}
		}
	}
}

// SetStatus records and logs a status report.
func (m *ConsoleManager) SetStatus(status Status) error {
	m.mu.Lock()
	m.last = status
	m.mu.Unlock()

	log := logger.WithComponent("console-service")
	log.Info().
		Stringer("state", status.State).
		Stringer("accepts", status.Accepts).
		Uint32("checkpoint", status.CheckPoint).
		Msg("Service status")

	if status.State == Stopped {
		m.release()
	}
	return nil
}

// LastStatus returns the most recent status report.
func (m *ConsoleManager) LastStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// release stops signal delivery. Safe to call more than once.
func (m *ConsoleManager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done == nil {
		return
	}
	m.stopNotify(m.sigChan)
	close(m.done)
	m.done = nil
}
