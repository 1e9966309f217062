// Package changefeed publishes index mutation events to external sinks
// without ever blocking the indexer. Events are buffered and delivered by a
// single background goroutine, so sinks observe them in mutation order.
package changefeed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/resilience"
)

// Sink is a destination for change events.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
	Ping(ctx context.Context) error
	Close() error
}

type Option func(*Feed)

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Feed) { f.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) { f.logger = l.With("component", "changefeed") }
}

func WithRetry(cfg resilience.RetryConfig) Option {
	return func(f *Feed) { f.retry = cfg }
}

type Feed struct {
	sinks   []Sink
	eventCh chan Event
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func New(sinks []Sink, bufferSize int, opts ...Option) *Feed {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	f := &Feed{
		sinks:   sinks,
		eventCh: make(chan Event, bufferSize),
		retry:   resilience.DefaultRetryConfig(),
		logger:  slog.Default().With("component", "changefeed"),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start launches the delivery goroutine. When ctx is cancelled the buffered
// events are drained before the goroutine exits.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.started || f.closed {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	go func() {
		defer close(f.done)
		for {
			select {
			case ev, ok := <-f.eventCh:
				if !ok {
					return
				}
				if ctx.Err() != nil {
					f.deliver(context.Background(), ev)
					continue
				}
				f.deliver(ctx, ev)
			case <-ctx.Done():
				f.drainRemaining()
				return
			}
		}
	}()
	f.logger.Info("change feed started", "sinks", len(f.sinks), "buffer_size", cap(f.eventCh))
}

// Track enqueues ev. It never blocks: when the buffer is full or the feed is
// closed the event is dropped and counted.
func (f *Feed) Track(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.dropped()
		return
	}
	select {
	case f.eventCh <- ev:
	default:
		f.dropped()
		f.logger.Warn("change event dropped (buffer full)", "type", ev.Type, "file", ev.File)
	}
}

// Close stops accepting events, waits for buffered ones to be delivered and
// closes every sink. Calling it more than once is a no-op.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	started := f.started
	close(f.eventCh)
	f.mu.Unlock()

	if started {
		<-f.done
	}
	for range f.eventCh {
		f.dropped()
	}

	var firstErr error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			f.logger.Error("closing sink", "sink", s.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// RegisterHealth adds one ping check per sink to checker.
func (f *Feed) RegisterHealth(checker *health.Checker) {
	for _, s := range f.sinks {
		checker.Register("changefeed."+s.Name(), health.PingCheck(s.Ping))
	}
}

func (f *Feed) deliver(ctx context.Context, ev Event) {
	for _, s := range f.sinks {
		err := resilience.Retry(ctx, "changefeed."+s.Name(), f.retry, func(ctx context.Context) error {
			return s.Send(ctx, ev)
		})
		if err != nil {
			f.dropped()
			f.logger.Error("failed to deliver change event",
				"sink", s.Name(),
				"type", ev.Type,
				"file", ev.File,
				"error", err,
			)
		}
	}
}

func (f *Feed) drainRemaining() {
	for {
		select {
		case ev, ok := <-f.eventCh:
			if !ok {
				return
			}
			f.deliver(context.Background(), ev)
		default:
			return
		}
	}
}

func (f *Feed) dropped() {
	if f.metrics != nil {
		f.metrics.FeedEventsDropped.Inc()
	}
}
