package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stalledWriter blocks every Write until release is called, like a console
// paused by Quick Edit selection.
type stalledWriter struct {
	gate chan struct{}

	mu  sync.Mutex
	buf bytes.Buffer
}

func newStalledWriter() *stalledWriter {
	return &stalledWriter{gate: make(chan struct{})}
}

func (w *stalledWriter) Write(p []byte) (int, error) {
	<-w.gate
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *stalledWriter) release() { close(w.gate) }

func (w *stalledWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func resetLogger(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		SetServiceMode(false)
		SetEventSource("")
		_ = Init(Config{Level: "disabled"})
	})
}

func TestConsoleSink_WriteReturnsWhileOutputStalled(t *testing.T) {
	out := newStalledWriter()
	sink := newConsoleSink(out, 8)

	done := make(chan struct{})
	go func() {
		sink.Write([]byte("Service started\n"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Write blocked on a stalled console")
	}

	out.release()
	sink.Close()
	if got := out.String(); got != "Service started\n" {
		t.Errorf("queued entry not flushed on Close, got %q", got)
	}
}

func TestConsoleSink_DropsWhenQueueFull(t *testing.T) {
	out := newStalledWriter()
	sink := newConsoleSink(out, 2)

	for i := 0; i < 10; i++ {
		sink.Write([]byte("x"))
	}
	// One entry may already be held by the stalled goroutine, two queued.
	if d := sink.Dropped(); d < 7 {
		t.Errorf("expected at least 7 dropped entries, got %d", d)
	}

	out.release()
	sink.Close()
}

func TestConsoleSink_WriteAfterCloseIsDiscarded(t *testing.T) {
	var buf bytes.Buffer
	sink := newConsoleSink(&buf, 4)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	n, err := sink.Write([]byte("late"))
	if err != nil || n != 4 {
		t.Errorf("expected silent discard, got n=%d err=%v", n, err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should reach the console after Close, got %q", buf.String())
	}
}

func TestInit_WritesJSONToFile(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "nested", "servicehost.log")

	if err := Init(Config{Level: "info", FilePath: path, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	log := WithComponent("service")
	log.Info().Str("state", "Running").Msg("Service status")
	log.Debug().Msg("below level")

	content := readLog(t, path)
	if !strings.Contains(content, `"component":"service"`) || !strings.Contains(content, `"message":"Service status"`) {
		t.Errorf("expected JSON entry, got %q", content)
	}
	if strings.Contains(content, "below level") {
		t.Error("debug entry written at info level")
	}
}

func TestInit_FixedFormat(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "servicehost.log")

	if err := Init(Config{Level: "info", FilePath: path, MaxSizeMB: 1, Format: "fixed"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	log := WithComponent("service")
	log.Info().Str("state", "Running").Msg("Service status")

	content := readLog(t, path)
	if !strings.Contains(content, "[INF] [service        ] Service status state=Running") {
		t.Errorf("expected fixed-format line, got %q", content)
	}
}

func TestInit_ReInitSwitchesFile(t *testing.T) {
	resetLogger(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	if err := Init(Config{Level: "info", FilePath: first, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info().Msg("before reload")

	if err := Init(Config{Level: "info", FilePath: second, MaxSizeMB: 1}); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	Info().Msg("after reload")

	if c := readLog(t, first); strings.Contains(c, "after reload") {
		t.Error("entry written to the file of the previous configuration")
	}
	if c := readLog(t, second); !strings.Contains(c, "after reload") {
		t.Errorf("expected entry in the new file, got %q", c)
	}
}

func TestInit_ComponentLoggerFollowsReload(t *testing.T) {
	resetLogger(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	if err := Init(Config{Level: "info", FilePath: first, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	log := WithComponent("heartbeat")
	log.Info().Msg("before reload")

	if err := Init(Config{Level: "info", FilePath: second, MaxSizeMB: 1}); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	log.Info().Msg("after reload")

	if c := readLog(t, first); strings.Contains(c, "after reload") {
		t.Errorf("component logger kept writing to the previous file: %q", c)
	}
	c := readLog(t, second)
	if !strings.Contains(c, "after reload") || !strings.Contains(c, `"component":"heartbeat"`) {
		t.Errorf("expected component entry in the new file, got %q", c)
	}
}

func TestInit_FailureKeepsPreviousSinks(t *testing.T) {
	resetLogger(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "servicehost.log")

	if err := Init(Config{Level: "info", FilePath: path, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// A regular file where a directory is needed makes MkdirAll fail.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("failed to create %s: %v", blocker, err)
	}
	if err := Init(Config{Level: "info", FilePath: filepath.Join(blocker, "x", "y.log")}); err == nil {
		t.Fatal("expected Init to fail")
	}

	Info().Msg("still logging")
	if c := readLog(t, path); !strings.Contains(c, "still logging") {
		t.Errorf("expected previous file to stay active, got %q", c)
	}
}

func TestInit_ServiceModeSuppressesConsole(t *testing.T) {
	resetLogger(t)
	SetServiceMode(true)

	if err := Init(Config{Level: "info", Console: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	initMu.Lock()
	defer initMu.Unlock()
	for _, s := range sinks {
		if _, ok := s.(*consoleSink); ok {
			t.Fatal("console sink opened in service mode")
		}
	}
}

func TestInit_ConsoleSinkClosedOnReInit(t *testing.T) {
	resetLogger(t)

	if err := Init(Config{Level: "info", Console: true}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	initMu.Lock()
	var console *consoleSink
	for _, s := range sinks {
		if c, ok := s.(*consoleSink); ok {
			console = c
		}
	}
	initMu.Unlock()
	if console == nil {
		t.Fatal("expected a console sink")
	}

	if err := Init(Config{Level: "disabled"}); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	select {
	case <-console.idle:
	case <-time.After(time.Second):
		t.Fatal("previous console sink still running after re-Init")
	}
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	resetLogger(t)
	if err := Init(Config{Level: "verbose", FilePath: filepath.Join(t.TempDir(), "x.log")}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", zerolog.GlobalLevel())
	}
}

func TestMirrored(t *testing.T) {
	for _, l := range []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel} {
		if !mirrored(l) {
			t.Errorf("%s should be mirrored to the event log", l)
		}
	}
	for _, l := range []zerolog.Level{zerolog.TraceLevel, zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.NoLevel} {
		if mirrored(l) {
			t.Errorf("%s should not be mirrored", l)
		}
	}
}

func TestLogger_BeforeInitIsNop(t *testing.T) {
	if Logger() == nil {
		t.Fatal("Logger must never return nil")
	}
}
