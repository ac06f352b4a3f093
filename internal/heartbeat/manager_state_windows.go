//go:build windows
// +build windows

package heartbeat

import (
	"context"
	"fmt"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

type win32Service struct {
	Name  string
	State string
}

// queryManagerState returns the state the service control manager reports
// for serviceName ("Running", "Stop Pending", ...), or "" when the service is
// not installed.
func queryManagerState(ctx context.Context, serviceName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var dst []win32Service
	query := fmt.Sprintf("SELECT Name, State FROM Win32_Service WHERE Name = '%s'",
		strings.ReplaceAll(serviceName, "'", "\\'"))
	if err := wmi.Query(query, &dst); err != nil {
		return "", fmt.Errorf("WMI Win32_Service query: %w", err)
	}
	if len(dst) == 0 {
		return "", nil
	}
	return dst[0].State, nil
}
