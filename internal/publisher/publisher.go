// Package publisher delivers service lifecycle and heartbeat events to an
// external sink.
package publisher

import (
	"context"
	"os"
	"time"

	"servicehost/internal/service"
)

// Kind distinguishes status transitions from periodic heartbeats.
type Kind string

const (
	KindStatus    Kind = "status"
	KindHeartbeat Kind = "heartbeat"
)

// Event is one record published about the hosted service.
type Event struct {
	Service    string      `json:"service"`
	Kind       Kind        `json:"kind"`
	State      string      `json:"state"`
	CheckPoint uint32      `json:"checkpoint"`
	Accepts    []string    `json:"accepts,omitempty"`
	Hostname   string      `json:"hostname"`
	PID        int         `json:"pid"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data,omitempty"`
}

// Publisher defines the interface for sending events.
type Publisher interface {
	// Publish transmits the event to the destination.
	Publish(ctx context.Context, event *Event) error

	// Close releases any resources held by the publisher.
	Close() error
}

// Source stamps events with the identity of the hosting process.
type Source struct {
	Service  string
	Hostname string
	PID      int
	now      func() time.Time
}

// NewSource creates a Source for the named service on this host.
func NewSource(serviceName, hostname string) *Source {
	return &Source{
		Service:  serviceName,
		Hostname: hostname,
		PID:      os.Getpid(),
		now:      time.Now,
	}
}

// Status builds a status event from a reported service status.
func (s *Source) Status(st service.Status) *Event {
	return &Event{
		Service:    s.Service,
		Kind:       KindStatus,
		State:      st.State.String(),
		CheckPoint: st.CheckPoint,
		Accepts:    st.Accepts.Names(),
		Hostname:   s.Hostname,
		PID:        s.PID,
		Timestamp:  s.now(),
	}
}

// Heartbeat builds a heartbeat event for a service in the given state.
func (s *Source) Heartbeat(state service.State, data interface{}) *Event {
	return &Event{
		Service:   s.Service,
		Kind:      KindHeartbeat,
		State:     state.String(),
		Hostname:  s.Hostname,
		PID:       s.PID,
		Timestamp: s.now(),
		Data:      data,
	}
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
