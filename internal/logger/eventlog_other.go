//go:build !windows
// +build !windows

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// openEventLogHook is a no-op; init systems capture stderr instead.
func openEventLogHook(source string) (zerolog.Hook, io.Closer, error) {
	return nil, nil, nil
}
