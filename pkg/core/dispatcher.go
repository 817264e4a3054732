package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kart-io/senderhub/observability"
	"github.com/kart-io/senderhub/pkg/errors"
	"github.com/kart-io/senderhub/pkg/logger"
	"github.com/kart-io/senderhub/pkg/message"
	"github.com/kart-io/senderhub/pkg/platform"
)

// Dispatcher fans messages out to the live adapters of a Manager
type Dispatcher struct {
	manager     *Manager
	telemetry   *observability.TelemetryProvider
	sendTimeout time.Duration
	logger      logger.Logger

	// Statistics
	stats      *DispatcherStats
	statsMutex sync.RWMutex

	inflight sync.WaitGroup
	closeMu  sync.RWMutex
	closed   bool
}

// DispatcherStats contains dispatcher statistics. A dispatch to N channels
// counts N messages.
type DispatcherStats struct {
	Dispatches      int64         `json:"dispatches"`
	TotalMessages   int64         `json:"total_messages"`
	SuccessfulSends int64         `json:"successful_sends"`
	FailedSends     int64         `json:"failed_sends"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastMessageTime time.Time     `json:"last_message_time"`
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger
func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithTelemetry records a span and metrics for every dispatch and send
func WithTelemetry(tp *observability.TelemetryProvider) Option {
	return func(d *Dispatcher) {
		d.telemetry = tp
	}
}

// WithSendTimeout bounds every channel send; zero means no limit
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout >= 0 {
			d.sendTimeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher over manager
func NewDispatcher(manager *Manager, opts ...Option) (*Dispatcher, error) {
	if manager == nil {
		return nil, errors.NewInvalidArgumentError("manager cannot be nil")
	}

	d := &Dispatcher{
		manager: manager,
		logger:  manager.logger,
		stats:   &DispatcherStats{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.telemetry == nil {
		d.telemetry = observability.Noop()
	}
	return d, nil
}

// Manager returns the adapter manager
func (d *Dispatcher) Manager() *Manager {
	return d.manager
}

// Dispatch sends opts through the channels it names, or through every live
// adapter when it names none. Each channel is sent in its own goroutine and
// Dispatch does not wait for them: cb receives the validation reports and
// the terminal result of every channel as they happen, so a dispatch to N
// channels ends with N terminal results. cb must be safe for concurrent use
// and may be nil.
//
// Empty options fail with an InvalidArgumentError and an unknown or
// unconfigured channel name with an UnsupportedServiceError, in both cases
// before any channel is sent to. The sends inherit ctx.
func (d *Dispatcher) Dispatch(ctx context.Context, opts *message.Options, cb platform.Callback) error {
	_, err := d.dispatch(ctx, opts, cb)
	return err
}

// DispatchAndWait is Dispatch returning the terminal result of every
// targeted channel, ordered by channel ID, once all of them have finished.
func (d *Dispatcher) DispatchAndWait(ctx context.Context, opts *message.Options) ([]platform.Result, error) {
	results, err := d.dispatch(ctx, opts, nil)
	if err != nil {
		return nil, err
	}

	var out []platform.Result
	for res := range results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, opts *message.Options, cb platform.Callback) (<-chan platform.Result, error) {
	if opts.IsEmpty() {
		return nil, errors.NewInvalidArgumentError("message options cannot be empty")
	}

	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return nil, errors.NewInvalidArgumentError("dispatcher is closed")
	}

	targets, err := d.manager.Route(opts.Services)
	if err != nil {
		d.logger.Error("Failed to route message", "services", opts.Services, "error", err)
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errors.NewConfigurationError("services", "no channel adapters initialized")
	}

	dispatchID := uuid.NewString()
	d.updateStats(func(s *DispatcherStats) {
		s.Dispatches++
		s.TotalMessages += int64(len(targets))
		s.LastMessageTime = time.Now()
	})

	d.logger.Debug("Dispatching message", "dispatch_id", dispatchID, "channels", len(targets))

	ctx, span := d.telemetry.TraceDispatch(ctx, dispatchID, len(targets))
	results := make(chan platform.Result, len(targets))
	var wg sync.WaitGroup
	for _, t := range targets {
		wg.Add(1)
		d.inflight.Add(1)
		go func(t Target) {
			defer d.inflight.Done()
			defer wg.Done()
			results <- d.send(ctx, dispatchID, t, opts, cb)
		}(t)
	}

	go func() {
		wg.Wait()
		close(results)
		span.End()
	}()

	return results, nil
}

// send runs one channel send and records its outcome
func (d *Dispatcher) send(ctx context.Context, dispatchID string, t Target, opts *message.Options, cb platform.Callback) platform.Result {
	channel := t.ID.String()
	ctx, span := d.telemetry.TraceSend(ctx, dispatchID, channel)
	defer span.End()

	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	res := platform.Send(ctx, t.Driver, opts, func(r platform.Result) {
		r.DispatchID = dispatchID
		if cb != nil {
			cb(r)
		}
	})
	res.DispatchID = dispatchID

	if res.Success() {
		d.telemetry.RecordMessageSent(ctx, channel, res.Duration)
		d.telemetry.SetSpanSuccess(span)
		d.updateStats(func(s *DispatcherStats) {
			s.SuccessfulSends++
			s.AverageLatency = d.calculateAverageLatency(s.AverageLatency, res.Duration)
		})
		d.logger.Info("Message delivered",
			"dispatch_id", dispatchID,
			"channel", channel,
			"result", res.Message,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return res
	}

	d.telemetry.RecordMessageFailed(ctx, channel, res.Duration, string(res.Stage))
	d.telemetry.SetSpanError(span, res.Err)
	d.updateStats(func(s *DispatcherStats) {
		s.FailedSends++
		s.AverageLatency = d.calculateAverageLatency(s.AverageLatency, res.Duration)
	})
	d.logger.Warn("Message not delivered",
		"dispatch_id", dispatchID,
		"channel", channel,
		"stage", res.Stage,
		"error", res.Err,
	)
	return res
}

// updateStats safely updates dispatcher statistics
func (d *Dispatcher) updateStats(updateFunc func(*DispatcherStats)) {
	d.statsMutex.Lock()
	defer d.statsMutex.Unlock()
	updateFunc(d.stats)
}

// calculateAverageLatency calculates rolling average latency
func (d *Dispatcher) calculateAverageLatency(currentAvg, newLatency time.Duration) time.Duration {
	if currentAvg == 0 {
		return newLatency
	}
	// Simple moving average with weight 0.9 for historical data
	return time.Duration(float64(currentAvg)*0.9 + float64(newLatency)*0.1)
}

// GetStats returns current dispatcher statistics
func (d *Dispatcher) GetStats() *DispatcherStats {
	d.statsMutex.RLock()
	defer d.statsMutex.RUnlock()

	statsCopy := *d.stats
	return &statsCopy
}

// Close waits for in-flight sends, then closes every adapter. Dispatches
// after Close fail with an InvalidArgumentError.
func (d *Dispatcher) Close() error {
	d.logger.Info("Shutting down dispatcher")

	d.closeMu.Lock()
	d.closed = true
	d.closeMu.Unlock()

	d.inflight.Wait()
	if err := d.manager.Close(); err != nil {
		return err
	}

	d.logger.Info("Dispatcher shut down successfully")
	return nil
}
