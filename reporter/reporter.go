package reporter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/metrics"
	"github.com/usazehan/healthcare-admin-dashboard/models"
)

const (
	DefaultTimeout   = 2 * time.Second
	DefaultQueueSize = 256
)

// Sink delivers one prediction event somewhere downstream.
type Sink interface {
	Name() string
	Send(ctx context.Context, e models.PredictionEventPayload) error
}

// Reporter forwards prediction events to its sinks from a single background
// worker. Report never blocks: events are dropped when the queue is full,
// and delivery failures are only logged and counted.
type Reporter struct {
	sinks   []Sink
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan models.PredictionEventPayload
	done   chan struct{}
}

// New starts the worker. A reporter without sinks accepts nothing.
func New(log *zap.Logger, timeout time.Duration, queueSize int, sinks ...Sink) *Reporter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reporter{
		sinks:   sinks,
		timeout: timeout,
		log:     log,
		queue:   make(chan models.PredictionEventPayload, queueSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Reporter) Enabled() bool {
	return r != nil && len(r.sinks) > 0
}

// Report enqueues e and reports whether it was accepted.
func (r *Reporter) Report(e models.PredictionEventPayload) bool {
	if !r.Enabled() {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- e:
		return true
	default:
		metrics.ReportsDropped.Inc()
		r.log.Warn("reporter queue full, dropping event", zap.String("appointment_id", e.AppointmentID))
		return false
	}
}

// Close stops accepting events and waits for queued ones to be sent until
// ctx ends.
func (r *Reporter) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) run() {
	defer close(r.done)
	for e := range r.queue {
		for _, sink := range r.sinks {
			r.deliver(sink, e)
		}
	}
}

func (r *Reporter) deliver(sink Sink, e models.PredictionEventPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := sink.Send(ctx, e); err != nil {
		metrics.ReportsFailed.WithLabelValues(sink.Name()).Inc()
		r.log.Warn("failed to report prediction",
			zap.String("sink", sink.Name()),
			zap.String("appointment_id", e.AppointmentID),
			zap.Error(err),
		)
		return
	}
	metrics.ReportsSent.WithLabelValues(sink.Name()).Inc()
}
