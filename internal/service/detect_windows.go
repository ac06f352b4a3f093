//go:build windows
// +build windows

package service

import (
	"golang.org/x/sys/windows/svc"

	"servicehost/internal/logger"
)

// IsService returns true if the process was started by the Service Control Manager.
func IsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		log := logger.WithComponent("service")
		log.Warn().Err(err).Msg("Failed to detect Windows service mode")
		return false
	}
	return isService
}

// DefaultManager returns the SCM manager when running as a Windows service
// and a console manager otherwise.
func DefaultManager() Manager {
	if IsService() {
		return SCMManager{}
	}
	return NewConsoleManager()
}
