// Package worker serves zone hydrate requests off the frame thread. Requests
// arrive as buffered dispatcher commands; results go back through a ResultSink
// for the frame owner to apply.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/portalview/internal/dispatcher"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/portalview/internal/worker"

// CommandHydrate is the dispatcher command that loads one zone's content.
const CommandHydrate = ":ZONE:HYDRATE:"

// DefaultTimeout bounds a single load when Dependencies.Timeout is unset.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNotRegistered is returned by RequestHydrate before RegisterHandlers.
	ErrNotRegistered = errors.New("hydrate handler not registered")
	// ErrBadRequest is returned for a hydrate event without a zone id.
	ErrBadRequest = errors.New("hydrate request has no zone id")
)

// ResultSink receives hydrate results. scene.Graph implements it with Post.
type ResultSink interface {
	Post(r core.HydrateResult)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Backend storage.Backend
	Sink    ResultSink
	Logger  *slog.Logger
	Timeout time.Duration
}

// Manager turns hydrate requests into storage loads.
type Manager struct {
	deps Dependencies

	mu         sync.RWMutex
	dispatcher *dispatcher.Dispatcher

	loadDuration metric.Float64Histogram
	loads        metric.Int64Counter
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) (*Manager, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultTimeout
	}

	m := &Manager{deps: deps}
	meter := otel.Meter(instrumentationName)

	var err error
	m.loadDuration, err = meter.Float64Histogram(
		"zone.hydrate.load.duration",
		metric.WithDescription("Time spent loading zone content from storage"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating load duration histogram: %w", err)
	}
	m.loads, err = meter.Int64Counter(
		"zone.hydrate.loads",
		metric.WithDescription("Zone content loads by result code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating loads counter: %w", err)
	}
	return m, nil
}
