//go:build windows
// +build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

const (
	eventIDStartup  = 1
	eventIDRegister = 2
)

// ReportStartupError writes a startup error to the Windows Event Log so that
// "sc start" and Event Viewer show it even before the logger is initialized.
func ReportStartupError(serviceName string, err error) {
	reportEvent(serviceName, eventIDStartup, fmt.Sprintf("Failed to start %s: %v", serviceName, err))
}

// ReportRunError writes a dispatch or registration failure to the Windows Event Log.
func ReportRunError(serviceName string, err error) {
	reportEvent(serviceName, eventIDRegister, fmt.Sprintf("Service %s failed to run: %v", serviceName, err))
}

func reportEvent(serviceName string, eventID uint32, msg string) {
	// Idempotent if the source already exists.
	_ = eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, err := eventlog.Open(serviceName)
	if err != nil {
		return
	}
	defer elog.Close()

	_ = elog.Error(eventID, msg)
}
