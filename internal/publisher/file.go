package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"servicehost/internal/config"
	"servicehost/internal/logger"
)

// FilePublisher appends events as JSON lines to a rotated file and
// optionally echoes them to the console.
type FilePublisher struct {
	filePath string
	writer   *lumberjack.Logger
	console  bool
	mu       sync.Mutex
	closed   bool
}

// NewFilePublisher creates a new FilePublisher with the given configuration.
func NewFilePublisher(cfg config.FileConfig) (*FilePublisher, error) {
	log := logger.WithComponent("file-publisher")

	if cfg.FilePath == "" {
		return nil, fmt.Errorf("file publisher requires FilePath")
	}

	dir := filepath.Dir(cfg.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create event directory: %w", err)
		}
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}

	log.Info().
		Str("file_path", cfg.FilePath).
		Bool("console", cfg.Console).
		Msg("FilePublisher initialized")

	return &FilePublisher{
		filePath: cfg.FilePath,
		writer:   writer,
		console:  cfg.Console,
	}, nil
}

// Publish writes a single event as one JSON line.
func (p *FilePublisher) Publish(ctx context.Context, event *Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	if p.console {
		fmt.Println(string(data))
	}
	return nil
}

// SetConsole toggles echoing events to stdout.
func (p *FilePublisher) SetConsole(enabled bool) {
	p.mu.Lock()
	p.console = enabled
	p.mu.Unlock()
}

// Close releases resources held by the FilePublisher.
func (p *FilePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
