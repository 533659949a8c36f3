package scene

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/portalview/pkg/core"
)

const instrumentationName = "github.com/OCAP2/portalview/internal/scene"

type metrics struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)

	requests, err := m.Int64Counter(
		"zone.hydrate.requests",
		metric.WithDescription("Hydrate requests issued for ghost or retried zones"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hydrate requests counter: %w", err)
	}

	failures, err := m.Int64Counter(
		"zone.hydrate.failures",
		metric.WithDescription("Zone hydrations that ended Failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hydrate failures counter: %w", err)
	}

	return &metrics{requests: requests, failures: failures}, nil
}

func (m *metrics) recordRequest(zone core.ID) {
	m.requests.Add(context.Background(), 1, metric.WithAttributes(attribute.String("zone", string(zone))))
}

func (m *metrics) recordFailure(zone core.ID, code core.ErrorCode) {
	m.failures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("zone", string(zone)),
		attribute.String("code", string(code)),
	))
}
