package publisher

import (
	"context"
	"reflect"
	"testing"
	"time"

	"servicehost/internal/logger"
	"servicehost/internal/service"
)

var testTimestamp = time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)

func init() {
	_ = logger.Init(logger.Config{Level: "disabled"})
}

func testSource() *Source {
	s := NewSource("UpdateSvc", "build-07")
	s.now = func() time.Time { return testTimestamp }
	return s
}

func TestSource_Status(t *testing.T) {
	ev := testSource().Status(service.Status{
		ServiceType: service.ServiceTypeWin32,
		State:       service.Running,
		Accepts:     service.AcceptStop | service.AcceptShutdown,
	})

	if ev.Kind != KindStatus || ev.Service != "UpdateSvc" || ev.Hostname != "build-07" {
		t.Errorf("unexpected identity: %+v", ev)
	}
	if ev.State != "Running" {
		t.Errorf("expected State=Running, got %q", ev.State)
	}
	if !reflect.DeepEqual(ev.Accepts, []string{"stop", "shutdown"}) {
		t.Errorf("expected accepts [stop shutdown], got %v", ev.Accepts)
	}
	if !ev.Timestamp.Equal(testTimestamp) {
		t.Errorf("expected timestamp %s, got %s", testTimestamp, ev.Timestamp)
	}
	if ev.PID == 0 {
		t.Error("expected PID to be set")
	}
}

func TestSource_StatusPendingCarriesCheckpoint(t *testing.T) {
	ev := testSource().Status(service.Status{State: service.StopPending, CheckPoint: 1})
	if ev.CheckPoint != 1 || ev.State != "StopPending" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if len(ev.Accepts) != 0 {
		t.Errorf("pending status must not accept controls, got %v", ev.Accepts)
	}
}

func TestSource_Heartbeat(t *testing.T) {
	data := map[string]int{"threads": 12}
	ev := testSource().Heartbeat(service.Running, data)
	if ev.Kind != KindHeartbeat || ev.State != "Running" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if !reflect.DeepEqual(ev.Data, data) {
		t.Errorf("expected data to be attached, got %v", ev.Data)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), &Event{}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
