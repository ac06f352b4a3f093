//go:build windows
// +build windows

package logger

import (
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows/svc/eventlog"
)

const eventIDLoggedError = 100

type eventLogHook struct {
	log *eventlog.Log
}

func (h eventLogHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if mirrored(level) {
		_ = h.log.Error(eventIDLoggedError, msg)
	}
}

func openEventLogHook(source string) (zerolog.Hook, io.Closer, error) {
	_ = eventlog.InstallAsEventCreate(source, eventlog.Error|eventlog.Warning|eventlog.Info)
	l, err := eventlog.Open(source)
	if err != nil {
		return nil, nil, err
	}
	return eventLogHook{log: l}, l, nil
}
