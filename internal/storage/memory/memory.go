// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/pkg/core"
)

// zoneRecord groups a skeleton with its content
type zoneRecord struct {
	Skeleton   core.ZoneSkeleton
	Content    []core.SpatialDescription
	HasContent bool
}

// Backend keeps zones and cameras in memory. With a snapshot path it loads the
// snapshot on Init and writes it back on Close.
type Backend struct {
	cfg config.MemoryConfig

	zones   map[core.ID]*zoneRecord
	order   []core.ID // skeleton insertion order
	cameras map[core.ID]core.Description

	mu sync.RWMutex
}

var (
	_ storage.Backend     = (*Backend)(nil)
	_ storage.CameraStore = (*Backend)(nil)
)

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		zones:   make(map[core.ID]*zoneRecord),
		cameras: make(map[core.ID]core.Description),
	}
}

// Init loads the snapshot when one is configured and exists.
func (b *Backend) Init() error {
	if b.cfg.SnapshotPath == "" {
		return nil
	}
	return b.loadSnapshot(b.cfg.SnapshotPath)
}

// Close writes the snapshot when one is configured.
func (b *Backend) Close() error {
	if b.cfg.SnapshotPath == "" {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writeSnapshot(b.cfg.SnapshotPath)
}

// SaveZoneSkeleton registers or replaces a zone skeleton. Content is kept.
func (b *Backend) SaveZoneSkeleton(_ context.Context, s core.ZoneSkeleton) error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", storage.ErrZoneNotFound)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	s.Description = s.Description.Clone()
	if rec, ok := b.zones[s.ID]; ok {
		rec.Skeleton = s
		return nil
	}
	b.zones[s.ID] = &zoneRecord{Skeleton: s}
	b.order = append(b.order, s.ID)
	return nil
}

// ZoneSkeletons returns every skeleton in the order it was first saved.
func (b *Backend) ZoneSkeletons(_ context.Context) ([]core.ZoneSkeleton, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.ZoneSkeleton, 0, len(b.order))
	for _, id := range b.order {
		s := b.zones[id].Skeleton
		s.Description = s.Description.Clone()
		out = append(out, s)
	}
	return out, nil
}

// SaveZoneContent replaces a zone's content.
func (b *Backend) SaveZoneContent(_ context.Context, c core.ZoneContent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.zones[c.ZoneID]
	if !ok {
		return fmt.Errorf("%w: %s", storage.ErrZoneNotFound, c.ZoneID)
	}
	rec.Content = cloneSpatials(c.Spatials)
	rec.HasContent = true
	return nil
}

// HasZoneContent reports whether content was saved for the zone.
func (b *Backend) HasZoneContent(_ context.Context, zoneID core.ID) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.zones[zoneID]
	return ok && rec.HasContent, nil
}

// LoadZoneContent returns a copy of a zone's content.
func (b *Backend) LoadZoneContent(_ context.Context, zoneID core.ID) (core.ZoneContent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.zones[zoneID]
	if !ok {
		return core.ZoneContent{}, fmt.Errorf("%w: %s", storage.ErrZoneNotFound, zoneID)
	}
	if !rec.HasContent {
		return core.ZoneContent{}, fmt.Errorf("%w: %s", storage.ErrContentMissing, zoneID)
	}
	return core.ZoneContent{ZoneID: zoneID, Spatials: cloneSpatials(rec.Content)}, nil
}

// SaveCamera stores a camera description.
func (b *Backend) SaveCamera(_ context.Context, id core.ID, d core.Description) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cameras[id] = d.Clone()
	return nil
}

// Cameras returns a copy of every stored camera description.
func (b *Backend) Cameras(_ context.Context) (map[core.ID]core.Description, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[core.ID]core.Description, len(b.cameras))
	for id, d := range b.cameras {
		out[id] = d.Clone()
	}
	return out, nil
}

// ZoneIDs returns the stored zone ids sorted, for diagnostics.
func (b *Backend) ZoneIDs() []core.ID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := append([]core.ID(nil), b.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func cloneSpatials(in []core.SpatialDescription) []core.SpatialDescription {
	out := make([]core.SpatialDescription, len(in))
	for i, sd := range in {
		sd.Description = sd.Description.Clone()
		out[i] = sd
	}
	return out
}
