//go:build !windows
// +build !windows

package service

// ReportStartupError is a no-op on non-Windows platforms.
func ReportStartupError(serviceName string, err error) {}

// ReportRunError is a no-op on non-Windows platforms.
func ReportRunError(serviceName string, err error) {}
