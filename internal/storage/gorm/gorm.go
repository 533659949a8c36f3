// Package gormstorage implements storage.Backend on any GORM database. Zone
// skeletons and content are written synchronously; camera descriptions are queued
// and written in batches by a background goroutine.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/portalview/internal/database"
	"github.com/OCAP2/portalview/internal/model"
	"github.com/OCAP2/portalview/internal/model/convert"
	"github.com/OCAP2/portalview/internal/queue"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued camera writes reach the database.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps    Dependencies
	cameras *queue.Queue[model.Camera]

	stopChan chan struct{}
	wg       sync.WaitGroup
	flushMu  sync.Mutex
}

var (
	_ storage.Backend     = (*Backend)(nil)
	_ storage.CameraStore = (*Backend)(nil)
)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		cameras: queue.New[model.Camera](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init runs schema migration and starts the camera writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the camera writer and flushes what it had queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	b.Flush()
	return nil
}

// SaveZoneSkeleton inserts or updates a zone skeleton, keeping its content.
func (b *Backend) SaveZoneSkeleton(ctx context.Context, s core.ZoneSkeleton) error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", storage.ErrZoneNotFound)
	}
	row := convert.CoreToZone(s)
	err := b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bound", "parent_portal", "outside", "description", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save zone %s: %w", s.ID, err)
	}
	return nil
}

// ZoneSkeletons returns every skeleton in creation order.
func (b *Backend) ZoneSkeletons(ctx context.Context) ([]core.ZoneSkeleton, error) {
	var rows []model.Zone
	if err := b.deps.DB.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}

	out := make([]core.ZoneSkeleton, 0, len(rows))
	for _, r := range rows {
		s, err := convert.ZoneToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SaveZoneContent replaces a zone's spatials in one transaction.
func (b *Backend) SaveZoneContent(ctx context.Context, c core.ZoneContent) error {
	rows := convert.CoreToSpatials(c)

	err := b.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Zone{}).Where("id = ?", string(c.ZoneID)).Update("has_content", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", storage.ErrZoneNotFound, c.ZoneID)
		}
		if err := tx.Where("zone_id = ?", string(c.ZoneID)).Delete(&model.Spatial{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("save content of zone %s: %w", c.ZoneID, err)
	}
	return nil
}

func (b *Backend) zone(ctx context.Context, id core.ID) (model.Zone, bool, error) {
	var z model.Zone
	err := b.deps.DB.WithContext(ctx).Where("id = ?", string(id)).Take(&z).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return z, false, nil
	}
	if err != nil {
		return z, false, fmt.Errorf("find zone %s: %w", id, err)
	}
	return z, true, nil
}

// HasZoneContent reports whether content was saved for the zone.
func (b *Backend) HasZoneContent(ctx context.Context, zoneID core.ID) (bool, error) {
	z, ok, err := b.zone(ctx, zoneID)
	if err != nil || !ok {
		return false, err
	}
	return z.HasContent, nil
}

// LoadZoneContent reads a zone's spatials in saved order.
func (b *Backend) LoadZoneContent(ctx context.Context, zoneID core.ID) (core.ZoneContent, error) {
	z, ok, err := b.zone(ctx, zoneID)
	if err != nil {
		return core.ZoneContent{}, err
	}
	if !ok {
		return core.ZoneContent{}, fmt.Errorf("%w: %s", storage.ErrZoneNotFound, zoneID)
	}
	if !z.HasContent {
		return core.ZoneContent{}, fmt.Errorf("%w: %s", storage.ErrContentMissing, zoneID)
	}

	var rows []model.Spatial
	if err := b.deps.DB.WithContext(ctx).Where("zone_id = ?", z.ID).Order("seq").Find(&rows).Error; err != nil {
		return core.ZoneContent{}, fmt.Errorf("load content of zone %s: %w", zoneID, err)
	}
	return convert.SpatialsToCore(zoneID, rows)
}

// SaveCamera queues a camera description for the next write cycle.
func (b *Backend) SaveCamera(_ context.Context, id core.ID, d core.Description) error {
	b.cameras.Push(convert.CoreToCamera(id, d))
	return nil
}

// Cameras returns every persisted camera description. Queued writes are not included.
func (b *Backend) Cameras(ctx context.Context) (map[core.ID]core.Description, error) {
	var rows []model.Camera
	if err := b.deps.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	out := make(map[core.ID]core.Description, len(rows))
	for _, r := range rows {
		id, d, err := convert.CameraToCore(r)
		if err != nil {
			return nil, err
		}
		out[id] = d
	}
	return out, nil
}

// Flush writes queued camera descriptions now.
func (b *Backend) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	writeQueue(b.deps.DB, b.cameras, "cameras", b.deps.Logger, latestPerCamera)
}

// latestPerCamera keeps the last queued write of each camera, in first-seen order.
func latestPerCamera(items []model.Camera) []model.Camera {
	index := make(map[string]int, len(items))
	out := items[:0:0]
	for _, c := range items {
		if i, ok := index[c.ID]; ok {
			out[i] = c
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

// writeQueue upserts all items from a queue in a transaction. Items are pushed
// back when the write fails.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T) []T) {
	if q.Empty() {
		return
	}

	items := q.GetAndEmpty()
	if prepare != nil {
		items = prepare(items)
	}

	tx := db.Begin()
	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&items).Error; err != nil {
		log.Error("Error writing queued rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
	log.Debug("Wrote queued rows", "table", name, "count", len(items))
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// bursts of frame updates collapse into one write per tick
			b.Flush()
		}
	}
}
