package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/portalview/internal/dispatcher"

type metrics struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	published metric.Int64Counter
}

// registerMetrics uses the global OTel meter (no-op if not configured). The
// queue gauge reports the depth of every buffered command, which for the hydrate
// command is the number of zones waiting on the worker.
func (d *Dispatcher) registerMetrics() error {
	m := otel.Meter(instrumentationName)
	d.metrics = &metrics{}

	var err error
	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(d.observeQueues, d.queueSize)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Buffered events handled"),
	)
	if err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Events refused because the queue was full"),
	)
	if err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}

	d.published, err = m.Int64Counter(
		"dispatcher.topics.published",
		metric.WithDescription("Domain events published"),
	)
	if err != nil {
		return fmt.Errorf("creating published counter: %w", err)
	}
	return nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, buf := range d.buffers {
		o.ObserveInt64(d.queueSize, int64(len(buf)),
			metric.WithAttributes(attribute.String("command", cmd)))
	}
	return nil
}

func (d *Dispatcher) countProcessed(command string) {
	d.processed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}

func (d *Dispatcher) countDropped(command string) {
	d.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}

func (d *Dispatcher) countPublished(topic string) {
	d.published.Add(context.Background(), 1, metric.WithAttributes(attribute.String("topic", topic)))
}
