package publisher

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"servicehost/internal/config"
	"servicehost/internal/service"
)

func tempFileConfig(t *testing.T) config.FileConfig {
	t.Helper()
	return config.FileConfig{
		FilePath:   filepath.Join(t.TempDir(), "events", "events.jsonl"),
		MaxSizeMB:  10,
		MaxBackups: 1,
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestNewFilePublisher_CreatesDirectory(t *testing.T) {
	cfg := tempFileConfig(t)
	p, err := NewFilePublisher(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if _, err := os.Stat(filepath.Dir(cfg.FilePath)); err != nil {
		t.Errorf("expected event directory to exist: %v", err)
	}
}

func TestNewFilePublisher_RequiresPath(t *testing.T) {
	if _, err := NewFilePublisher(config.FileConfig{}); err == nil {
		t.Fatal("expected error for empty FilePath")
	}
}

func TestFilePublisher_PublishWritesJSONLines(t *testing.T) {
	cfg := tempFileConfig(t)
	p, err := NewFilePublisher(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src := testSource()
	ctx := context.Background()
	for _, st := range []service.State{service.StartPending, service.Running} {
		if err := p.Publish(ctx, src.Status(service.Status{State: st})); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	if err := p.Publish(ctx, src.Heartbeat(service.Running, nil)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := readEvents(t, cfg.FilePath)
	if len(events) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(events))
	}
	if events[0].State != "StartPending" || events[1].State != "Running" {
		t.Errorf("unexpected state order: %s, %s", events[0].State, events[1].State)
	}
	if events[2].Kind != KindHeartbeat {
		t.Errorf("expected heartbeat last, got %s", events[2].Kind)
	}
	if !events[0].Timestamp.Equal(testTimestamp) {
		t.Errorf("timestamp not preserved: %s", events[0].Timestamp)
	}
}

func TestFilePublisher_PublishAfterClose(t *testing.T) {
	p, err := NewFilePublisher(tempFileConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := p.Publish(context.Background(), &Event{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestFilePublisher_SetConsole(t *testing.T) {
	p, err := NewFilePublisher(tempFileConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	p.SetConsole(true)
	if !p.console {
		t.Error("expected console enabled")
	}
	p.SetConsole(false)
	if p.console {
		t.Error("expected console disabled")
	}
}
