package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ccviewer/navigator/internal/dispatcher"

// Event is a notification published by the navigator.
// Layer, Field and Err are only set on fetch failures.
type Event struct {
	Name      string
	Layer     string
	Field     string
	Err       error
	Timestamp time.Time
}

// HandlerFunc reacts to an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type subscription struct {
	id       uint64
	name     string
	handler  HandlerFunc
	buffer   chan Event
	blocking bool
	done     chan struct{}
	stop     sync.Once
}

func (s *subscription) close() {
	s.stop.Do(func() { close(s.done) })
}

// Dispatcher fans events out to subscribers, in subscription order.
type Dispatcher struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	queueReg  metric.Registration
	emitted   metric.Int64Counter
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu     sync.RWMutex
	subs   map[string][]*subscription
	nextID uint64
	wg     sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		subs:   make(map[string][]*subscription),
		logger: logger,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events waiting in subscriber queues"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	d.queueReg, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for name, subs := range d.subs {
				for _, s := range subs {
					if s.buffer == nil {
						continue
					}
					o.ObserveInt64(d.queueSize, int64(len(s.buffer)),
						metric.WithAttributes(attribute.String("event", name)))
				}
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.emitted, err = m.Int64Counter(
		"dispatcher.events.emitted",
		metric.WithDescription("Total events emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating emitted counter: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed by buffered subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Subscribe registers h for events named name and returns a func that removes it.
// Calling the returned func more than once is harmless.
func (d *Dispatcher) Subscribe(name string, h HandlerFunc, opts ...Option) func() {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged && d.logger != nil {
		handler = d.withLogging(name, handler)
	}

	d.mu.Lock()
	d.nextID++
	s := &subscription{
		id:       d.nextID,
		name:     name,
		handler:  handler,
		blocking: cfg.blocking,
		done:     make(chan struct{}),
	}
	if cfg.bufferSize > 0 {
		s.buffer = make(chan Event, cfg.bufferSize)
	}
	d.subs[name] = append(d.subs[name], s)
	d.mu.Unlock()

	if s.buffer != nil {
		d.wg.Add(1)
		go d.drain(s)
	}

	return func() { d.unsubscribe(s) }
}

// Emit delivers e to every subscriber of e.Name. Synchronous handlers run on the
// caller's goroutine. The returned error reports events dropped by full queues.
func (d *Dispatcher) Emit(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	d.mu.RLock()
	subs := append([]*subscription(nil), d.subs[e.Name]...)
	d.mu.RUnlock()

	nameAttr := attribute.String("event", e.Name)
	d.emitted.Add(context.Background(), 1, metric.WithAttributes(nameAttr))

	var dropped int
	for _, s := range subs {
		if s.buffer == nil {
			if err := s.handler(e); err != nil && d.logger != nil {
				d.logger.Error("event handler failed", "event", e.Name, "error", err)
			}
			continue
		}

		if s.blocking {
			select {
			case s.buffer <- e:
			case <-s.done:
			}
			continue
		}

		select {
		case s.buffer <- e:
		case <-s.done:
		default:
			dropped++
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
		}
	}

	if dropped > 0 {
		return fmt.Errorf("queue full: %s dropped by %d subscriber(s)", e.Name, dropped)
	}
	return nil
}

// HasSubscribers returns true if any handler is registered for name.
func (d *Dispatcher) HasSubscribers(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs[name]) > 0
}

// Close removes every subscription, stops reporting queue sizes and waits for
// buffered handlers to return.
func (d *Dispatcher) Close() {
	if d.queueReg != nil {
		if err := d.queueReg.Unregister(); err != nil && d.logger != nil {
			d.logger.Error("unregistering queue callback", "error", err)
		}
		d.queueReg = nil
	}

	d.mu.Lock()
	all := d.subs
	d.subs = make(map[string][]*subscription)
	d.mu.Unlock()

	for _, subs := range all {
		for _, s := range subs {
			s.close()
		}
	}
	d.wg.Wait()
}

func (d *Dispatcher) unsubscribe(s *subscription) {
	d.mu.Lock()
	subs := d.subs[s.name]
	for i, other := range subs {
		if other.id == s.id {
			d.subs[s.name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(d.subs[s.name]) == 0 {
		delete(d.subs, s.name)
	}
	d.mu.Unlock()

	s.close()
}

func (d *Dispatcher) drain(s *subscription) {
	defer d.wg.Done()

	nameAttr := attribute.String("event", s.name)
	for {
		select {
		case <-s.done:
			return
		case e := <-s.buffer:
			if err := s.handler(e); err != nil && d.logger != nil {
				d.logger.Error("event handler failed", "event", e.Name, "error", err)
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
		}
	}
}

func (d *Dispatcher) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "event", name, "layer", e.Layer)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "event", name, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "event", name, "duration", time.Since(start))
		}

		return err
	}
}
