//go:build !windows
// +build !windows

package heartbeat

import "context"

// queryManagerState has no service manager to ask outside Windows.
func queryManagerState(ctx context.Context, serviceName string) (string, error) {
	return "", nil
}
