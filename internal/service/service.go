// Package service provides integration with the host operating system's
// service manager: registration, lifecycle status reporting and control
// request dispatch for a single long-running worker.
package service

import (
	"context"
	"errors"
)

var (
	// ErrAlreadyExists is returned by New when another Controller is alive in this process.
	ErrAlreadyExists = errors.New("another service controller already exists")

	// ErrNotImplemented is returned by a control handler for control codes it does not support.
	ErrNotImplemented = errors.New("control code not implemented")

	// ErrAlreadyRegistered is returned when the entry point runs more than once.
	ErrAlreadyRegistered = errors.New("service control handler already registered")
)

// Worker is the service's actual job. Run blocks for the service's whole
// active lifetime and must return once ctx is cancelled.
type Worker interface {
	Run(ctx context.Context) error
}

// RunFunc is the main function that runs the service logic.
type RunFunc func(ctx context.Context) error

// Run implements Worker.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// ControlHandler receives control requests delivered by the service manager.
// It returns nil to acknowledge the request or ErrNotImplemented.
type ControlHandler func(cmd Cmd) error

// StatusReporter submits status records to the service manager. It is the
// control token obtained from a successful Register.
type StatusReporter interface {
	SetStatus(status Status) error
}

// Manager is the boundary to the host service manager.
type Manager interface {
	// Dispatch connects the process to the service manager and invokes main
	// once on a manager-owned thread. It blocks until main has returned.
	Dispatch(name string, main func()) error

	// Register installs handler as the control handler for the named service
	// and returns the token used for status reports.
	Register(name string, handler ControlHandler) (StatusReporter, error)
}
