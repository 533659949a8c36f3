// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/portalview/internal/model"
	"github.com/OCAP2/portalview/internal/model/convert"
	"github.com/OCAP2/portalview/pkg/core"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

// Snapshot is the root JSON structure. Rows use the database models so a
// snapshot can be imported into a SQL store unchanged.
type Snapshot struct {
	Version  int             `json:"version"`
	Zones    []model.Zone    `json:"zones"`
	Spatials []model.Spatial `json:"spatials"`
	Cameras  []model.Camera  `json:"cameras"`
}

// buildSnapshot must be called with b.mu held.
func (b *Backend) buildSnapshot() Snapshot {
	s := Snapshot{Version: SnapshotVersion}
	for _, id := range b.order {
		rec := b.zones[id]
		row := convert.CoreToZone(rec.Skeleton)
		row.HasContent = rec.HasContent
		s.Zones = append(s.Zones, row)
		if rec.HasContent {
			s.Spatials = append(s.Spatials, convert.CoreToSpatials(core.ZoneContent{ZoneID: id, Spatials: rec.Content})...)
		}
	}
	for id, d := range b.cameras {
		s.Cameras = append(s.Cameras, convert.CoreToCamera(id, d))
	}
	return s
}

// restore must be called with b.mu held.
func (b *Backend) restore(s Snapshot) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}

	byZone := make(map[string][]model.Spatial)
	for _, row := range s.Spatials {
		byZone[row.ZoneID] = append(byZone[row.ZoneID], row)
	}

	zones := make(map[core.ID]*zoneRecord, len(s.Zones))
	order := make([]core.ID, 0, len(s.Zones))
	for _, row := range s.Zones {
		skel, err := convert.ZoneToCore(row)
		if err != nil {
			return err
		}
		rec := &zoneRecord{Skeleton: skel, HasContent: row.HasContent}
		if row.HasContent {
			content, err := convert.SpatialsToCore(skel.ID, byZone[row.ID])
			if err != nil {
				return err
			}
			rec.Content = content.Spatials
		}
		zones[skel.ID] = rec
		order = append(order, skel.ID)
	}

	cameras := make(map[core.ID]core.Description, len(s.Cameras))
	for _, row := range s.Cameras {
		id, d, err := convert.CameraToCore(row)
		if err != nil {
			return err
		}
		cameras[id] = d
	}

	b.zones, b.order, b.cameras = zones, order, cameras
	return nil
}

func (b *Backend) loadSnapshot(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if isGzip(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip snapshot: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.restore(s)
}

// writeSnapshot must be called with b.mu held.
func (b *Backend) writeSnapshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if isGzip(path) {
		return writeGzipJSON(path, b.buildSnapshot())
	}
	return writeJSON(path, b.buildSnapshot())
}

func isGzip(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

func writeJSON(path string, data Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
