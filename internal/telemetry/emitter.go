package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"k8s.io/klog/v2"

	"github.com/ppiankov/promptarmor/internal/model"
)

// Emitter ships telemetry events. Emit must never block the caller beyond
// handing the event off, and never reports failure.
type Emitter interface {
	Emit(ev model.Event)
}

// New returns an HTTPEmitter for cfg, or Nop when no URL is configured.
func New(cfg Config) Emitter {
	if cfg.URL == "" {
		return Nop{}
	}
	return NewHTTPEmitter(cfg)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(model.Event) {}

// Counter is implemented by emitters that keep count of lost events.
type Counter interface {
	// Dropped returns the number of events dropped because too many
	// were in flight.
	Dropped() int64
	// Failed returns the number of events that were handed off but not
	// delivered.
	Failed() int64
}

// FuncEmitter hands events to an in-process consumer. Each event runs fn
// on its own goroutine, with at most maxInFlight running at once; events
// beyond that are dropped. A panicking fn counts as a failure.
type FuncEmitter struct {
	fn       func(model.Event)
	inflight chan struct{}
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewFunc creates a FuncEmitter. maxInFlight <= 0 means DefaultMaxInFlight.
func NewFunc(fn func(model.Event), maxInFlight int) *FuncEmitter {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &FuncEmitter{fn: fn, inflight: make(chan struct{}, maxInFlight)}
}

// Emit implements Emitter.
func (e *FuncEmitter) Emit(ev model.Event) {
	select {
	case e.inflight <- struct{}{}:
	default:
		e.dropped.Add(1)
		klog.V(2).InfoS("event consumer busy, dropping event", "event_type", ev.EventType)
		return
	}

	go func() {
		defer func() { <-e.inflight }()
		defer func() {
			if r := recover(); r != nil {
				e.failed.Add(1)
				klog.V(2).InfoS("event consumer panicked", "event_type", ev.EventType, "panic", r)
			}
		}()
		e.fn(ev)
	}()
}

// Dropped implements Counter.
func (e *FuncEmitter) Dropped() int64 {
	return e.dropped.Load()
}

// Failed implements Counter.
func (e *FuncEmitter) Failed() int64 {
	return e.failed.Load()
}

// HTTPEmitter posts events as JSON to a sink. One attempt per event,
// bounded by the client timeout. Failures are logged and dropped.
type HTTPEmitter struct {
	cfg      Config
	client   *http.Client
	inflight chan struct{}
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewHTTPEmitter creates an HTTPEmitter, applying defaults for zero values.
func NewHTTPEmitter(cfg Config) *HTTPEmitter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	return &HTTPEmitter{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		inflight: make(chan struct{}, cfg.MaxInFlight),
	}
}

// Emit sends ev in the background and returns immediately. If
// MaxInFlight sends are already pending the event is dropped.
func (e *HTTPEmitter) Emit(ev model.Event) {
	select {
	case e.inflight <- struct{}{}:
	default:
		e.dropped.Add(1)
		klog.V(2).InfoS("telemetry queue full, dropping event", "event_type", ev.EventType)
		return
	}

	go func() {
		defer func() { <-e.inflight }()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Timeout)
		defer cancel()
		if err := e.Send(ctx, ev); err != nil {
			e.failed.Add(1)
			klog.V(2).InfoS("telemetry send failed", "event_type", ev.EventType, "err", err)
		}
	}()
}

// Send posts a single event synchronously. No retries.
func (e *HTTPEmitter) Send(ctx context.Context, ev model.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telemetry sink rejected event: HTTP %d", resp.StatusCode)
	}
	return nil
}

// Dropped implements Counter.
func (e *HTTPEmitter) Dropped() int64 {
	return e.dropped.Load()
}

// Failed implements Counter. It counts sends that errored or timed out.
func (e *HTTPEmitter) Failed() int64 {
	return e.failed.Load()
}
