package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config tunes the Hub. Zero values fall back to defaults.
type Config struct {
	// BufferSize is the capacity of the event queue.
	BufferSize int
	// FlushEvery delivers a batch as soon as this many events are pending.
	FlushEvery int
	// FlushInterval delivers whatever is pending on every tick.
	FlushInterval time.Duration
	// SinkTimeout bounds each Consume and Close call.
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

const (
	defaultBufferSize    = 1024
	defaultFlushEvery    = 64
	defaultFlushInterval = 200 * time.Millisecond
	defaultSinkTimeout   = 5 * time.Second
	dropLogInterval      = 5 * time.Second
)

// Hub fans events out to sinks from a single background goroutine. Emit is
// safe for concurrent use and never blocks.
type Hub struct {
	cfg      Config
	sinks    []Sink
	queue    chan Event
	quit     chan struct{}
	finished chan struct{}
	logger   *zap.Logger

	dropped     atomic.Int64
	lastDropLog atomic.Int64
	closing     atomic.Bool
	stopOnce    sync.Once
}

// NewHub starts the delivery goroutine and returns a ready Hub.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		cfg:      cfg,
		queue:    make(chan Event, cfg.BufferSize),
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
		logger:   cfg.Logger,
	}
	for _, sink := range sinks {
		if sink != nil {
			h.sinks = append(h.sinks, sink)
		}
	}
	go h.loop()
	return h
}

// Emit queues evt. Invalid events are discarded and a full queue drops the
// event with a rate-limited warning.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closing.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.queue <- evt:
	default:
		h.dropped.Add(1)
		h.warnDropped(time.Now())
	}
}

// Dropped returns how many events were lost to backpressure.
func (h *Hub) Dropped() int64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}

// Close stops intake, delivers everything still queued, closes the sinks and
// waits for the goroutine to exit or ctx to expire.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.stopOnce.Do(func() {
		h.closing.Store(true)
		close(h.quit)
	})
	select {
	case <-h.finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close: %w", ctx.Err())
	}
}

func (h *Hub) loop() {
	defer close(h.finished)
	ticker := time.NewTicker(h.cfg.FlushInterval)
	defer ticker.Stop()

	pending := make([]Event, 0, h.cfg.FlushEvery)
	for {
		select {
		case evt := <-h.queue:
			pending = append(pending, evt)
			if len(pending) >= h.cfg.FlushEvery {
				pending = h.deliver(pending)
			}
		case <-ticker.C:
			pending = h.deliver(pending)
		case <-h.quit:
			for drained := false; !drained; {
				select {
				case evt := <-h.queue:
					pending = append(pending, evt)
				default:
					drained = true
				}
			}
			h.deliver(pending)
			h.closeSinks()
			return
		}
	}
}

// deliver hands a copy of pending to every sink and returns pending reset to
// zero length.
func (h *Hub) deliver(pending []Event) []Event {
	if len(pending) == 0 {
		return pending
	}
	batch := append([]Event(nil), pending...)
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, batch); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
	return pending[:0]
}

func (h *Hub) closeSinks() {
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) warnDropped(now time.Time) {
	last := h.lastDropLog.Load()
	if now.UnixNano()-last < dropLogInterval.Nanoseconds() {
		return
	}
	if h.lastDropLog.CompareAndSwap(last, now.UnixNano()) {
		h.logger.Warn("progress events dropped due to backpressure", zap.Int64("dropped_total", h.dropped.Load()))
	}
}
