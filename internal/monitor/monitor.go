// Package monitor periodically writes a JSON status snapshot of the running view.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/internal/view"
	"github.com/OCAP2/portalview/pkg/core"
)

// StatusFileName is written inside Dependencies.Dir.
const StatusFileName = "status.json"

// DefaultInterval is used when Dependencies.Interval is unset.
const DefaultInterval = time.Second

// SnapshotSource is implemented by view.Service.
type SnapshotSource interface {
	Snapshot() view.Snapshot
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source   SnapshotSource
	Logger   *slog.Logger
	Dir      string
	Interval time.Duration
}

// Status is the serialized snapshot.
type Status struct {
	Time          time.Time      `json:"time"`
	Frame         uint64         `json:"frame"`
	Visible       int            `json:"visible"`
	FrameMs       float64        `json:"frameMs"`
	Nodes         int            `json:"nodes"`
	Pending       int            `json:"pending"`
	StartZone     core.ID        `json:"startZone,omitempty"`
	OutsideRegion core.ID        `json:"outsideRegion,omitempty"`
	Zones         map[string]int `json:"zones"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus builds a status from the current snapshot.
func (s *Service) GetStatus() Status {
	snap := s.deps.Source.Snapshot()
	st := Status{
		Time:          time.Now().UTC(),
		Frame:         snap.Frame,
		Visible:       snap.Visible,
		FrameMs:       float64(snap.Duration.Microseconds()) / 1000.0,
		Nodes:         snap.Stats.Nodes,
		Pending:       snap.Stats.Pending,
		StartZone:     snap.StartZone,
		OutsideRegion: snap.Stats.OutsideRegion,
		Zones:         make(map[string]int, 4),
	}
	for _, status := range []lazy.Status{lazy.Ghost, lazy.Loading, lazy.Ready, lazy.Failed} {
		st.Zones[status.String()] = snap.Stats.Zones[status]
	}
	return st
}

// WriteStatus writes the current status to the status file, replacing it.
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	path := filepath.Join(s.deps.Dir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.deps.Source == nil {
		return fmt.Errorf("monitor: no snapshot source")
	}
	if err := os.MkdirAll(s.deps.Dir, 0755); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stopChan, s.done)
	return nil
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	s.deps.Logger.Debug("Starting status monitor", "dir", s.deps.Dir, "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.WriteStatus(); err != nil {
				s.deps.Logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and writes a last status.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()

	<-done
	if err := s.WriteStatus(); err != nil {
		s.deps.Logger.Error("Error writing final status", "error", err)
	}
}
