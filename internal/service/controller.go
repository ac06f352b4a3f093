package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"servicehost/internal/logger"
)

// Controller registers one service with the service manager, reports its
// lifecycle and dispatches control requests to the worker.
type Controller struct {
	name    string
	manager Manager
	worker  Worker

	state atomic.Uint32

	mu         sync.Mutex
	token      StatusReporter
	checkpoint uint32
	cancel     context.CancelFunc
	onStatus   func(Status)
	notify     chan Status
	closed     bool
}

// statusQueueSize bounds undelivered observer notifications. One lifecycle
// produces four.
const statusQueueSize = 8

var (
	currentMu sync.Mutex
	current   *Controller
)

// New creates the process-wide controller for the named service. It fails
// with ErrAlreadyExists while another controller has not been closed.
func New(name string, manager Manager, worker Worker) (*Controller, error) {
	if manager == nil || worker == nil {
		return nil, fmt.Errorf("service %q: manager and worker are required", name)
	}

	currentMu.Lock()
	defer currentMu.Unlock()

	if current != nil {
		return nil, fmt.Errorf("cannot create service %q: %w (%q)", name, ErrAlreadyExists, current.name)
	}

	c := &Controller{
		name:    name,
		manager: manager,
		worker:  worker,
	}
	current = c
	return c, nil
}

// MustNew is like New but panics on a duplicate controller.
func MustNew(name string, manager Manager, worker Worker) *Controller {
	c, err := New(name, manager, worker)
	if err != nil {
		panic(err)
	}
	return c
}

// Current returns the live controller, or nil.
func Current() *Controller {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

// Close releases the process-wide slot so a new controller may be created.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	currentMu.Lock()
	defer currentMu.Unlock()
	if current == c {
		current = nil
	}
}

// Name returns the service name the controller registers under.
func (c *Controller) Name() string {
	return c.name
}

// State returns the last reported lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// OnStatus sets a callback invoked after every status report. Must be called
// before Run. The callback runs on its own goroutine, in report order, and
// never delays a report; Run returns only after it has seen Stopped.
func (c *Controller) OnStatus(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// Run connects to the service manager and blocks until the service has
// stopped. The returned error covers dispatch and registration only; the
// worker's own error is logged.
func (c *Controller) Run() error {
	log := logger.WithComponent("service")

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("service %q: controller is closed", c.name)
	}

	var (
		runMu  sync.Mutex
		runErr error
	)
	err := c.manager.Dispatch(c.name, func() {
		err := c.serviceMain()
		runMu.Lock()
		runErr = err
		runMu.Unlock()
	})
	if err != nil {
		log.Error().Err(err).Str("service", c.name).Msg("Service control dispatcher failed")
		return fmt.Errorf("dispatch service %q: %w", c.name, err)
	}

	runMu.Lock()
	defer runMu.Unlock()
	return runErr
}

// serviceMain is the entry point invoked by the dispatcher.
func (c *Controller) serviceMain() error {
	log := logger.WithComponent("service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if c.token != nil {
		c.mu.Unlock()
		return fmt.Errorf("service %q: %w", c.name, ErrAlreadyRegistered)
	}
	c.cancel = cancel
	onStatus := c.onStatus
	if onStatus != nil {
		c.notify = make(chan Status, statusQueueSize)
	}
	notify := c.notify
	c.mu.Unlock()

	var observer sync.WaitGroup
	if notify != nil {
		observer.Add(1)
		go func() {
			defer observer.Done()
			for st := range notify {
				onStatus(st)
			}
		}()
	}
	defer func() {
		c.mu.Lock()
		ch := c.notify
		c.notify = nil
		c.mu.Unlock()
		if ch != nil {
			close(ch)
		}
		observer.Wait()
	}()

	token, err := c.manager.Register(c.name, c.HandleControl)
	if err != nil {
		log.Error().Err(err).Str("service", c.name).Msg("Failed to register service control handler")
		return fmt.Errorf("register control handler for %q: %w", c.name, err)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.setStatus(StartPending)
	c.setStatus(Running)
	log.Info().Str("service", c.name).Msg("Service started")

	if err := c.runWorker(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Str("service", c.name).Msg("Service worker exited with error")
	}

	c.setStatus(StopPending)
	c.setStatus(Stopped)
	log.Info().Str("service", c.name).Msg("Service stopped")
	return nil
}

// runWorker converts a worker panic into an error so the lifecycle can still
// reach Stopped.
func (c *Controller) runWorker(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return c.worker.Run(ctx)
}

// HandleControl handles a control request from the service manager. Stop and
// shutdown only signal the worker; the transition to StopPending happens
// once the worker returns.
func (c *Controller) HandleControl(cmd Cmd) error {
	switch cmd {
	case Interrogate:
		return nil

	case Stop, Shutdown:
		log := logger.WithComponent("service")
		log.Info().
			Str("service", c.name).
			Stringer("control", cmd).
			Stringer("state", c.State()).
			Msg("Received stop request from service manager")
		c.requestStop()
		return nil

	default:
		return ErrNotImplemented
	}
}

func (c *Controller) requestStop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// setStatus advances the lifecycle one step to state and reports it. A state
// that is not the direct successor is refused. Report failures are logged and
// never stop the remaining transitions.
func (c *Controller) setStatus(state State) {
	log := logger.WithComponent("service")

	c.mu.Lock()
	prev := State(c.state.Load())
	if state != prev+1 {
		c.mu.Unlock()
		log.Error().
			Str("service", c.name).
			Stringer("from", prev).
			Stringer("to", state).
			Msg("Rejected out-of-order lifecycle transition")
		return
	}

	status := Status{
		ServiceType: ServiceTypeWin32,
		State:       state,
	}
	if state == Running {
		status.Accepts = AcceptStop | AcceptShutdown
	}
	if state != Running && state != Stopped {
		c.checkpoint++
	} else {
		c.checkpoint = 0
	}
	status.CheckPoint = c.checkpoint

	c.state.Store(uint32(state))
	token := c.token
	c.mu.Unlock()

	if err := token.SetStatus(status); err != nil {
		log.Error().
			Err(err).
			Str("service", c.name).
			Stringer("state", state).
			Msg("Failed to report service status")
	}

	c.mu.Lock()
	if c.notify != nil {
		select {
		case c.notify <- status:
		default:
			log.Warn().Str("service", c.name).Stringer("state", state).Msg("Status observer queue full, notification dropped")
		}
	}
	c.mu.Unlock()
}
