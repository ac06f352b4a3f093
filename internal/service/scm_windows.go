//go:build windows
// +build windows

package service

import (
	"errors"
	"fmt"
	"sync"
	"syscall"

	"golang.org/x/sys/windows"
)

// SCMManager talks to the Windows Service Control Manager. It is the only
// code aware of the native ServiceMain and HandlerEx calling conventions.
type SCMManager struct{}

var (
	dispatchMu   sync.Mutex
	dispatchMain func()

	handlersMu    sync.Mutex
	handlers      = map[uintptr]ControlHandler{}
	nextHandlerID uintptr

	serviceMainCallback = syscall.NewCallback(scmServiceMain)
	ctlHandlerCallback  = syscall.NewCallback(scmCtlHandler)
)

// Dispatch calls StartServiceCtrlDispatcher, which blocks until the service
// has reported Stopped. main runs on a thread owned by the SCM.
func (SCMManager) Dispatch(name string, main func()) error {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return fmt.Errorf("invalid service name %q: %w", name, err)
	}

	dispatchMu.Lock()
	dispatchMain = main
	dispatchMu.Unlock()
	defer func() {
		dispatchMu.Lock()
		dispatchMain = nil
		dispatchMu.Unlock()
	}()

	table := []windows.SERVICE_TABLE_ENTRY{
		{ServiceName: namePtr, ServiceProc: serviceMainCallback},
		{ServiceName: nil, ServiceProc: 0},
	}
	if err := windows.StartServiceCtrlDispatcher(&table[0]); err != nil {
		return fmt.Errorf("StartServiceCtrlDispatcher failed: %w", err)
	}
	return nil
}

// Register calls RegisterServiceCtrlHandlerEx. The handler context is an id
// resolved back to handler by scmCtlHandler.
func (SCMManager) Register(name string, handler ControlHandler) (StatusReporter, error) {
	if handler == nil {
		return nil, errors.New("nil control handler")
	}
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("invalid service name %q: %w", name, err)
	}

	handlersMu.Lock()
	nextHandlerID++
	id := nextHandlerID
	handlers[id] = handler
	handlersMu.Unlock()

	h, err := windows.RegisterServiceCtrlHandlerEx(namePtr, ctlHandlerCallback, id)
	if err != nil {
		handlersMu.Lock()
		delete(handlers, id)
		handlersMu.Unlock()
		return nil, fmt.Errorf("RegisterServiceCtrlHandlerEx failed: %w", err)
	}

	return &scmStatusHandle{handle: h}, nil
}

func scmServiceMain(argc uint32, argv **uint16) uintptr {
	dispatchMu.Lock()
	main := dispatchMain
	dispatchMu.Unlock()

	if main != nil {
		main()
	}
	return 0
}

func scmCtlHandler(ctl, evtype, evdata, context uintptr) uintptr {
	handlersMu.Lock()
	handler := handlers[context]
	handlersMu.Unlock()

	if handler == nil {
		return uintptr(windows.ERROR_CALL_NOT_IMPLEMENTED)
	}
	return uintptr(controlReply(handler(Cmd(ctl))))
}

func controlReply(err error) syscall.Errno {
	switch {
	case err == nil:
		return windows.NO_ERROR
	case errors.Is(err, ErrNotImplemented):
		return windows.ERROR_CALL_NOT_IMPLEMENTED
	default:
		return windows.ERROR_SERVICE_CANNOT_ACCEPT_CTRL
	}
}

type scmStatusHandle struct {
	handle windows.Handle
}

// SetStatus submits status through SetServiceStatus.
func (s *scmStatusHandle) SetStatus(status Status) error {
	native := windows.SERVICE_STATUS{
		ServiceType:      status.ServiceType,
		CurrentState:     nativeState(status.State),
		ControlsAccepted: uint32(status.Accepts),
		Win32ExitCode:    status.ExitCode,
		CheckPoint:       status.CheckPoint,
		WaitHint:         status.WaitHint,
	}
	if err := windows.SetServiceStatus(s.handle, &native); err != nil {
		return fmt.Errorf("SetServiceStatus(%s) failed: %w", status.State, err)
	}
	return nil
}

func nativeState(s State) uint32 {
	switch s {
	case StartPending:
		return windows.SERVICE_START_PENDING
	case Running:
		return windows.SERVICE_RUNNING
	case StopPending:
		return windows.SERVICE_STOP_PENDING
	default:
		return windows.SERVICE_STOPPED
	}
}
