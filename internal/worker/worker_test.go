package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/dispatcher"
	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/internal/scene"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/internal/storage/memory"
	"github.com/OCAP2/portalview/internal/storage/storagetest"
	"github.com/OCAP2/portalview/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct{}

func (mockLogger) Debug(string, ...any) {}
func (mockLogger) Info(string, ...any)  {}
func (mockLogger) Error(string, ...any) {}

// sink collects posted results
type sink struct {
	mu      sync.Mutex
	results []core.HydrateResult
}

func (s *sink) Post(r core.HydrateResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

func (s *sink) wait(t *testing.T, n int) []core.HydrateResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.results) >= n {
			out := append([]core.HydrateResult(nil), s.results...)
			s.mu.Unlock()
			return out
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d results", n)
	return nil
}

// failingBackend fails every content call
type failingBackend struct {
	storage.Backend
	hasErr  error
	loadErr error
}

func (b failingBackend) HasZoneContent(context.Context, core.ID) (bool, error) {
	return b.hasErr == nil, b.hasErr
}

func (b failingBackend) LoadZoneContent(context.Context, core.ID) (core.ZoneContent, error) {
	return core.ZoneContent{}, b.loadErr
}

func seeded(t *testing.T) *memory.Backend {
	t.Helper()
	b := memory.New(config.MemoryConfig{})
	ctx := context.Background()
	if err := b.SaveZoneSkeleton(ctx, storagetest.Hall()); err != nil {
		t.Fatal(err)
	}
	if err := b.SaveZoneSkeleton(ctx, core.ZoneSkeleton{ID: "empty"}); err != nil {
		t.Fatal(err)
	}
	if err := b.SaveZoneContent(ctx, storagetest.HallContent()); err != nil {
		t.Fatal(err)
	}
	return b
}

func newManager(t *testing.T, backend storage.Backend, s ResultSink, buffer int) (*Manager, *dispatcher.Dispatcher) {
	t.Helper()
	m, err := NewManager(Dependencies{Backend: backend, Sink: s})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := dispatcher.New(mockLogger{})
	if err != nil {
		t.Fatalf("dispatcher.New: %v", err)
	}
	m.RegisterHandlers(d, buffer)
	t.Cleanup(d.Close)
	return m, d
}

func TestRequestHydrate_NotRegistered(t *testing.T) {
	m, err := NewManager(Dependencies{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.RequestHydrate("hall"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestRequestHydrate_Loads(t *testing.T) {
	s := &sink{}
	m, _ := newManager(t, seeded(t), s, 4)

	if err := m.RequestHydrate("hall"); err != nil {
		t.Fatalf("RequestHydrate: %v", err)
	}
	got := s.wait(t, 1)[0]
	if got.Failed() {
		t.Fatalf("unexpected failure: %s %s", got.Code, got.Reason)
	}
	if got.ZoneID != "hall" || len(got.Content.Spatials) != 3 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestLoad_FailureCodes(t *testing.T) {
	tests := []struct {
		name    string
		backend storage.Backend
		zone    core.ID
		want    core.ErrorCode
	}{
		{"content missing", seeded(t), "empty", core.ErrorCodeContentMissing},
		{"unknown zone", seeded(t), "nowhere", core.ErrorCodeContentMissing},
		{"has fails", failingBackend{hasErr: errors.New("disk")}, "hall", core.ErrorCodeLoadFailed},
		{"load fails", failingBackend{loadErr: errors.New("disk")}, "hall", core.ErrorCodeLoadFailed},
		{"load not found", failingBackend{loadErr: fmt.Errorf("x: %w", storage.ErrZoneNotFound)}, "hall", core.ErrorCodeZoneNotFound},
		{"no backend", nil, "hall", core.ErrorCodeLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(Dependencies{Backend: tt.backend})
			if err != nil {
				t.Fatal(err)
			}
			got := m.Load(context.Background(), tt.zone)
			if got.Code != tt.want {
				t.Errorf("code = %q, want %q (reason %q)", got.Code, tt.want, got.Reason)
			}
			if got.ZoneID != tt.zone {
				t.Errorf("zone = %q, want %q", got.ZoneID, tt.zone)
			}
		})
	}
}

func TestHandleHydrate_ArgsOnly(t *testing.T) {
	s := &sink{}
	_, d := newManager(t, seeded(t), s, 4)

	if _, err := d.Dispatch(dispatcher.Event{Command: CommandHydrate, Args: []string{"hall"}}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := s.wait(t, 1)[0]; got.ZoneID != "hall" {
		t.Errorf("zone = %q", got.ZoneID)
	}
}

func TestHandleHydrate_BadRequest(t *testing.T) {
	m, err := NewManager(Dependencies{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.handleHydrate(dispatcher.Event{Command: CommandHydrate}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

// blockingBackend holds every load until released
type blockingBackend struct {
	storage.Backend
	release chan struct{}
}

func (b blockingBackend) HasZoneContent(context.Context, core.ID) (bool, error) {
	<-b.release
	return false, nil
}

func TestRequestHydrate_QueueFull(t *testing.T) {
	release := make(chan struct{})
	s := &sink{}
	m, _ := newManager(t, blockingBackend{release: release}, s, 1)

	// one in the handler, one in the buffer, the rest rejected
	var rejected error
	for i := 0; i < 5 && rejected == nil; i++ {
		rejected = m.RequestHydrate(core.ID(fmt.Sprintf("z%d", i)))
	}
	close(release)
	if !errors.Is(rejected, dispatcher.ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", rejected)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	g, err := scene.NewGraph(scene.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.NewZone(storagetest.Hall()); err != nil {
		t.Fatal(err)
	}

	m, _ := newManager(t, seeded(t), g, 4)
	g.SetRequester(m)

	if err := m.RequestHydrate("hall"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for g.Pending() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := g.ApplyPending(); n != 1 {
		t.Fatalf("applied %d results, want 1", n)
	}
	z, _ := g.Zone("hall")
	if z.Status() != lazy.Ready {
		t.Errorf("status = %v, want Ready", z.Status())
	}
	if _, ok := g.Find("book"); !ok {
		t.Error("book not constituted")
	}
}
