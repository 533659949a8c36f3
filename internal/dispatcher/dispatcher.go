// Package dispatcher routes commands to handlers and fans domain events out to
// subscribers. Buffered handlers run on their own goroutine.
package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/portalview/pkg/core"
)

var (
	// ErrUnknownCommand is returned by Dispatch for an unregistered command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned by a non-blocking buffered handler when its queue is full.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event is a command addressed to one handler. Args carry textual arguments from
// the command line or the control surface; Payload carries typed values from
// in-process callers.
type Event struct {
	Command   string
	Args      []string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// SubscriberFunc receives a published domain event.
type SubscriberFunc func(topic string, payload any)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
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

// Dispatcher routes events to registered handlers and published topics to subscribers.
type Dispatcher struct {
	logger Logger

	*metrics

	mu          sync.RWMutex
	handlers    map[string]HandlerFunc
	buffers     map[string]chan Event
	subscribers map[string][]SubscriberFunc
	closed      bool
	wg          sync.WaitGroup
}

var _ core.Publisher = (*Dispatcher)(nil)

// New creates a new Dispatcher with the given logger.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers:    make(map[string]HandlerFunc),
		buffers:     make(map[string]chan Event),
		subscribers: make(map[string][]SubscriberFunc),
		logger:      logger,
	}

	if err := d.registerMetrics(); err != nil {
		return nil, err
	}
	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Subscribe registers fn for a topic. Subscribers run synchronously on the
// publishing goroutine in registration order.
func (d *Dispatcher) Subscribe(topic string, fn SubscriberFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[topic] = append(d.subscribers[topic], fn)
}

// Publish implements core.Publisher.
func (d *Dispatcher) Publish(topic string, payload any) {
	d.mu.RLock()
	subs := d.subscribers[topic]
	d.mu.RUnlock()

	d.countPublished(topic)
	for _, fn := range subs {
		fn(topic, payload)
	}
}

// Close stops accepting events and waits for buffered handlers to drain. It must
// not race with Dispatch.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range buffer {
			if _, err := h(e); err != nil {
				d.logger.Error("buffered event failed", "command", command, "error", err)
			}
			d.countProcessed(command)
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.countDropped(command)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
