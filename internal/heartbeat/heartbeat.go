// Package heartbeat implements the default worker hosted by the service
// controller: it publishes a liveness event on a fixed interval until the
// controller asks it to stop.
package heartbeat

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"servicehost/internal/logger"
	"servicehost/internal/publisher"
	"servicehost/internal/service"
)

const (
	// DefaultInterval is used when New is given a non-positive interval.
	DefaultInterval = 30 * time.Second

	sampleTimeout = 10 * time.Second
)

// Worker publishes heartbeat events. It satisfies service.Worker.
type Worker struct {
	source    *publisher.Source
	publisher publisher.Publisher
	sampler   Sampler
	interval  time.Duration
	clock     clock.Clock
	state     func() service.State

	beats atomic.Uint64
}

// New creates a heartbeat worker. A nil sampler publishes beats without a
// snapshot.
func New(source *publisher.Source, pub publisher.Publisher, sampler Sampler, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		source:    source,
		publisher: pub,
		sampler:   sampler,
		interval:  interval,
		clock:     clock.New(),
		state:     func() service.State { return service.Running },
	}
}

// SetStateSource sets the function reporting the state carried by each beat.
// Typically the hosting controller's State method.
func (w *Worker) SetStateSource(fn func() service.State) {
	if fn != nil {
		w.state = fn
	}
}

// Beats returns the number of heartbeats published so far.
func (w *Worker) Beats() uint64 {
	return w.beats.Load()
}

// Run publishes one heartbeat immediately and then one per interval. It
// returns nil once ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log := logger.WithComponent("heartbeat")

	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	log.Info().
		Str("service", w.source.Service).
		Dur("interval", w.interval).
		Msg("Heartbeat worker started")

	w.beat(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Uint64("beats", w.Beats()).
				Msg("Heartbeat worker stopped")
			return nil
		case <-ticker.C:
			w.beat(ctx)
		}
	}
}

func (w *Worker) beat(ctx context.Context) {
	log := logger.WithComponent("heartbeat")

	var data interface{}
	if w.sampler != nil {
		sampleCtx, cancel := context.WithTimeout(ctx, sampleTimeout)
		snap, err := w.sampler.Sample(sampleCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to sample process statistics")
		} else if snap != nil {
			data = snap
		}
	}

	event := w.source.Heartbeat(w.state(), data)
	if err := w.publisher.Publish(ctx, event); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).Msg("Failed to publish heartbeat")
		return
	}

	n := w.beats.Add(1)
	log.Debug().Uint64("beat", n).Msg("Heartbeat published")
}
