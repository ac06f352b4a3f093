// Package logger provides the process-wide zerolog logger. Entries go to a
// rotated file and optionally the console; in service mode errors are also
// mirrored to the host event log.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration (Logging.json).
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
	Format     string `json:"Format"` // "json" (default) or "fixed"
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "log/ServiceHost/servicehost.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
		Format:     "json",
	}
}

const consoleQueueSize = 1000

var (
	current atomic.Pointer[zerolog.Logger]

	// output and hooks are shared by every logger derived from current, so a
	// reload reaches component loggers created before it.
	output switchWriter
	hooks  switchHook

	// initMu serializes Init; sinks are the closers opened by the last call.
	initMu sync.Mutex
	sinks  []io.Closer

	serviceMode atomic.Bool
	eventSource atomic.Value // string
)

// SetServiceMode marks the process as started by the service manager. A
// service has no console, so console output is suppressed.
func SetServiceMode(enabled bool) {
	serviceMode.Store(enabled)
}

// SetEventSource names the event log source error entries are mirrored to
// while in service mode. Takes effect on the next Init.
func SetEventSource(name string) {
	eventSource.Store(name)
}

// Init (re)builds the global logger's sinks. Sinks opened by a previous call
// are closed once the new ones are in place, so Init doubles as the
// hot-reload path. On error the previous sinks stay active.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	initMu.Lock()
	defer initMu.Unlock()

	var (
		opened  []io.Closer
		outputs []io.Writer
	)

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		opened = append(opened, rotator)

		var w io.Writer = rotator
		if strings.EqualFold(cfg.Format, "fixed") {
			w = NewFixedFormatWriter(rotator)
		}
		outputs = append(outputs, w)
	}

	inService := serviceMode.Load()

	// The console sits behind a queue so a stalled terminal never holds up
	// the file sink.
	if cfg.Console && !inService {
		console := newConsoleSink(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, consoleQueueSize)
		opened = append(opened, console)
		outputs = append(outputs, console)
	}

	var out io.Writer
	switch len(outputs) {
	case 0:
		if inService {
			out = io.Discard
		} else {
			out = os.Stdout
		}
	case 1:
		out = outputs[0]
	default:
		out = zerolog.MultiLevelWriter(outputs...)
	}

	var hook zerolog.Hook
	if source, _ := eventSource.Load().(string); inService && source != "" {
		h, closer, err := openEventLogHook(source)
		if err == nil && h != nil {
			hook = h
			opened = append(opened, closer)
		}
	}

	output.swap(out)
	hooks.swap(hook)

	for _, c := range sinks {
		c.Close()
	}
	sinks = opened

	if current.Load() == nil {
		l := zerolog.New(&output).With().Timestamp().Caller().Logger().Hook(&hooks)
		current.Store(&l)
	}
	return nil
}

// Logger returns the global logger instance.
func Logger() *zerolog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}

// Debug logs a debug message.
func Debug() *zerolog.Event {
	return Logger().Debug()
}

// Info logs an info message.
func Info() *zerolog.Event {
	return Logger().Info()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	return Logger().Warn()
}

// Error logs an error message.
func Error() *zerolog.Event {
	return Logger().Error()
}

// WithComponent returns a logger tagged with the component field.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// mirrored reports whether an entry at level is copied to the event log.
func mirrored(level zerolog.Level) bool {
	return level >= zerolog.ErrorLevel && level <= zerolog.PanicLevel
}
