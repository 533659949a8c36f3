package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/portalview/internal/dispatcher"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterHandlers registers the hydrate handler with the dispatcher. A full
// buffer rejects the request instead of blocking the frame thread.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher, bufferSize int) {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	d.Register(CommandHydrate, m.handleHydrate, dispatcher.Buffered(bufferSize), dispatcher.Logged())

	m.mu.Lock()
	m.dispatcher = d
	m.mu.Unlock()
}

// RequestHydrate enqueues a load for zoneID. It never blocks.
func (m *Manager) RequestHydrate(zoneID core.ID) error {
	m.mu.RLock()
	d := m.dispatcher
	m.mu.RUnlock()
	if d == nil {
		return ErrNotRegistered
	}

	_, err := d.Dispatch(dispatcher.Event{
		Command: CommandHydrate,
		Args:    []string{string(zoneID)},
		Payload: zoneID,
	})
	if err != nil {
		m.deps.Logger.Warn("Hydrate request rejected", "zoneId", zoneID, "error", err)
		return err
	}
	return nil
}

func (m *Manager) handleHydrate(e dispatcher.Event) (any, error) {
	zoneID, ok := e.Payload.(core.ID)
	if !ok && len(e.Args) > 0 {
		zoneID = core.ID(e.Args[0])
	}
	if zoneID == "" {
		return nil, ErrBadRequest
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.deps.Timeout)
	defer cancel()

	result := m.Load(ctx, zoneID)
	if m.deps.Sink != nil {
		m.deps.Sink.Post(result)
	}
	return result.Code, nil
}

// Load reads a zone's content from storage and wraps the outcome in a result.
// It is exposed for callers that hydrate synchronously.
func (m *Manager) Load(ctx context.Context, zoneID core.ID) core.HydrateResult {
	start := time.Now()
	result := m.load(ctx, zoneID)

	code := string(result.Code)
	if code == "" {
		code = "ok"
	}
	m.loadDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
	m.loads.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))

	if result.Failed() {
		m.deps.Logger.Warn("Zone load failed", "zoneId", zoneID, "code", result.Code, "reason", result.Reason)
	} else {
		m.deps.Logger.Debug("Zone loaded", "zoneId", zoneID, "spatials", len(result.Content.Spatials),
			"duration", time.Since(start))
	}
	return result
}

func (m *Manager) load(ctx context.Context, zoneID core.ID) core.HydrateResult {
	fail := func(code core.ErrorCode, err error) core.HydrateResult {
		return core.HydrateResult{ZoneID: zoneID, Code: code, Reason: err.Error()}
	}
	if m.deps.Backend == nil {
		return fail(core.ErrorCodeLoadFailed, errors.New("no storage backend"))
	}

	has, err := m.deps.Backend.HasZoneContent(ctx, zoneID)
	if err != nil {
		return fail(core.ErrorCodeLoadFailed, fmt.Errorf("checking content: %w", err))
	}
	if !has {
		return fail(core.ErrorCodeContentMissing, fmt.Errorf("%w: %s", storage.ErrContentMissing, zoneID))
	}

	content, err := m.deps.Backend.LoadZoneContent(ctx, zoneID)
	switch {
	case errors.Is(err, storage.ErrContentMissing):
		return fail(core.ErrorCodeContentMissing, err)
	case errors.Is(err, storage.ErrZoneNotFound):
		return fail(core.ErrorCodeZoneNotFound, err)
	case err != nil:
		return fail(core.ErrorCodeLoadFailed, fmt.Errorf("loading content: %w", err))
	}
	if content.ZoneID == "" {
		content.ZoneID = zoneID
	}
	return core.HydrateResult{ZoneID: zoneID, Content: content}
}
