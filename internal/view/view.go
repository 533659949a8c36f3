// Package view runs frames: it drains hydrate results, refreshes world transforms
// and computes the visible set, all on the caller's goroutine.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/portalview/internal/culler"
	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/internal/scene"
	"github.com/OCAP2/portalview/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/portalview/internal/view"

// ErrNoGraph is returned by NewService without a graph or culler.
var ErrNoGraph = errors.New("view needs a graph and a culler")

// Dependencies holds all dependencies for the frame service
type Dependencies struct {
	Graph  *scene.Graph
	Culler *culler.Culler
	Logger *slog.Logger
}

// Frame is the outcome of one frame.
type Frame struct {
	Number    uint64
	Applied   int
	Visible   []core.ID
	StartZone core.ID
	Duration  time.Duration
}

// Snapshot is the state after the last frame. It is safe to read from any goroutine.
type Snapshot struct {
	Frame     uint64
	Visible   int
	StartZone core.ID
	Duration  time.Duration
	Stats     scene.Stats
}

// Service owns the frame loop. Frame must be called from one goroutine.
type Service struct {
	deps Dependencies

	frame atomic.Uint64

	mu   sync.RWMutex
	last Snapshot

	visibleSize   metric.Int64Histogram
	frameDuration metric.Float64Histogram
}

// NewService creates the frame service and its instruments.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Graph == nil || deps.Culler == nil {
		return nil, ErrNoGraph
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Service{deps: deps}
	m := otel.Meter(instrumentationName)

	var err error
	s.visibleSize, err = m.Int64Histogram(
		"culler.visible_set.size",
		metric.WithDescription("Spatials in the visible set per frame"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating visible set histogram: %w", err)
	}
	s.frameDuration, err = m.Float64Histogram(
		"view.frame.duration",
		metric.WithDescription("Time spent computing one frame"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame duration histogram: %w", err)
	}
	return s, nil
}

// Frame applies pending hydrate results, updates world transforms and computes the
// visible set. A failed visible set computation still counts as a frame.
func (s *Service) Frame(ctx context.Context) (Frame, error) {
	start := time.Now()
	f := Frame{Number: s.frame.Add(1)}

	f.Applied = s.deps.Graph.ApplyPending()
	s.deps.Graph.UpdateWorld()

	err := s.deps.Culler.ComputeVisibleSet(s.deps.Graph)
	visible := s.deps.Culler.VisibleSet()
	f.Visible = make([]core.ID, len(visible))
	for i, sp := range visible {
		f.Visible[i] = sp.SpatialID()
	}
	f.StartZone = s.deps.Graph.Root().StartZone()
	f.Duration = time.Since(start)

	s.visibleSize.Record(ctx, int64(len(f.Visible)))
	s.frameDuration.Record(ctx, float64(f.Duration.Microseconds())/1000.0)

	s.mu.Lock()
	s.last = Snapshot{
		Frame:     f.Number,
		Visible:   len(f.Visible),
		StartZone: f.StartZone,
		Duration:  f.Duration,
		Stats:     s.deps.Graph.Stats(),
	}
	s.mu.Unlock()

	if err != nil {
		s.deps.Logger.Error("Frame failed", "frame", f.Number, "error", err)
		return f, fmt.Errorf("frame %d: %w", f.Number, err)
	}
	s.deps.Logger.Debug("Frame complete", "frame", f.Number, "visible", len(f.Visible),
		"applied", f.Applied, "duration", f.Duration)
	return f, nil
}

// Run calls Frame every interval until frames have run or ctx is done. Zero frames
// runs until ctx is done. each, when set, sees every frame.
func (s *Service) Run(ctx context.Context, frames int, interval time.Duration, each func(Frame, error)) error {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; frames <= 0 || n < frames; n++ {
		f, err := s.Frame(ctx)
		if each != nil {
			each(f, err)
		}
		if frames > 0 && n == frames-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// FrameNumber is the number of the last frame started.
func (s *Service) FrameNumber() uint64 { return s.frame.Load() }

// Snapshot returns the state after the last frame.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.last
	snap.Stats.Zones = make(map[lazy.Status]int, len(s.last.Stats.Zones))
	for k, v := range s.last.Stats.Zones {
		snap.Stats.Zones[k] = v
	}
	return snap
}
