// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/OCAP2/portalview/pkg/core"
)

var (
	// ErrZoneNotFound is returned for a zone the store has no skeleton for.
	ErrZoneNotFound = errors.New("zone not found in store")
	// ErrContentMissing is returned when a zone's skeleton exists but its content was never saved.
	ErrContentMissing = errors.New("zone content missing")
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Zone skeletons, loaded up front so a world starts as ghosts
	SaveZoneSkeleton(ctx context.Context, s core.ZoneSkeleton) error
	ZoneSkeletons(ctx context.Context) ([]core.ZoneSkeleton, error)

	// Zone content, loaded on hydrate. Saving replaces what was there.
	SaveZoneContent(ctx context.Context, c core.ZoneContent) error
	HasZoneContent(ctx context.Context, zoneID core.ID) (bool, error)
	LoadZoneContent(ctx context.Context, zoneID core.ID) (core.ZoneContent, error)
}

// CameraStore is an optional interface for backends that persist camera descriptions.
type CameraStore interface {
	SaveCamera(ctx context.Context, id core.ID, d core.Description) error
	Cameras(ctx context.Context) (map[core.ID]core.Description, error)
}
