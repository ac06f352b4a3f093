//go:build !windows
// +build !windows

package service

import "os"

// IsService reports whether the process appears to run under an init system.
// For systemd services, stdin is typically not a terminal.
func IsService() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

// DefaultManager returns a console manager; init systems deliver control
// requests as signals.
func DefaultManager() Manager {
	return NewConsoleManager()
}
