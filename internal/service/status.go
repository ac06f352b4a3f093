package service

import (
	"fmt"
	"strings"
)

// State is a lifecycle state of the service. States advance one step at a
// time in declaration order.
type State uint32

// Lifecycle states, in the order they are reported.
const (
	Uninitialized State = iota // not yet reported to the service manager
	StartPending               // registered, worker not started
	Running                    // worker running, stop and shutdown accepted
	StopPending                // worker returned, cleanup in progress
	Stopped                    // final state
)

// String returns the state name, or State(n) for an unknown value.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case StartPending:
		return "StartPending"
	case Running:
		return "Running"
	case StopPending:
		return "StopPending"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Cmd is a control code delivered by the service manager. Values match the
// Win32 SERVICE_CONTROL_* codes.
type Cmd uint32

// Control codes the controller knows by name. Only Stop, Shutdown and
// Interrogate are handled; the rest are answered as not implemented.
const (
	Stop        Cmd = 1
	Pause       Cmd = 2
	Continue    Cmd = 3
	Interrogate Cmd = 4
	Shutdown    Cmd = 5
)

// String returns the lowercase control name.
func (c Cmd) String() string {
	switch c {
	case Stop:
		return "stop"
	case Pause:
		return "pause"
	case Continue:
		return "continue"
	case Interrogate:
		return "interrogate"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("cmd(%d)", uint32(c))
	}
}

// Accepted is a bitmask of the control codes the service currently accepts.
// Values match the Win32 SERVICE_ACCEPT_* flags.
type Accepted uint32

const (
	AcceptStop     Accepted = 1
	AcceptShutdown Accepted = 4
)

// Names returns the accepted control names in a stable order.
func (a Accepted) Names() []string {
	var names []string
	if a&AcceptStop != 0 {
		names = append(names, "stop")
	}
	if a&AcceptShutdown != 0 {
		names = append(names, "shutdown")
	}
	return names
}

func (a Accepted) String() string {
	if a == 0 {
		return "none"
	}
	return strings.Join(a.Names(), "|")
}

// ServiceTypeWin32 is the SERVICE_WIN32 service type reported in every status.
const ServiceTypeWin32 uint32 = 0x30

// Status is the record submitted to the service manager on each transition.
type Status struct {
	ServiceType uint32
	State       State
	Accepts     Accepted
	ExitCode    uint32
	CheckPoint  uint32
	WaitHint    uint32 // milliseconds
}
