package scene

import (
	"fmt"

	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/pkg/core"
)

// ApplyContent constitutes a zone's hydrated subgraph and marks the zone Ready.
// Spatials are applied in order, so parents must come before their children. When
// any spatial fails the zone is left without children and marked Failed.
func (g *Graph) ApplyContent(content core.ZoneContent) error {
	z, ok := g.Zone(content.ZoneID)
	if !ok {
		return fmt.Errorf("%w: zone %s", ErrNotFound, content.ZoneID)
	}
	if st := z.Status(); st != lazy.Ghost && st != lazy.Loading {
		return fmt.Errorf("%w: zone %s is %v", lazy.ErrInvalidTransition, z.id, st)
	}

	for _, c := range append([]core.ID(nil), z.children...) {
		g.removeSubtree(c)
	}
	z.children = nil

	var portals []*Portal
	created := make(map[core.ID]bool, len(content.Spatials))
	for _, sd := range content.Spatials {
		parent := sd.Parent
		if parent == "" {
			parent = z.id
		}
		var n Node
		var err error
		if parent != z.id && !created[parent] {
			err = fmt.Errorf("%w: parent %s is not part of zone %s", ErrNotFound, parent, z.id)
		} else {
			n, err = g.Constitute(parent, sd)
		}
		if err != nil {
			for _, c := range z.children {
				g.removeSubtree(c)
			}
			z.children = nil
			reason := fmt.Sprintf("spatial %s: %v", sd.ID, err)
			if z.Status() == lazy.Ghost {
				z.state.RequestHydrate()
			}
			g.fail(z, core.ErrorCodeDecodeFailed, reason)
			return fmt.Errorf("apply content of zone %s: %w", z.id, err)
		}
		created[sd.ID] = true
		if p, ok := n.(*Portal); ok {
			portals = append(portals, p)
		}
	}

	if err := z.state.Complete(); err != nil {
		return err
	}
	g.publisher.Publish(core.TopicZoneHydrated, core.ZoneHydrated{ZoneID: z.id, Spatials: len(content.Spatials)})
	g.logger.Info("Zone hydrated", "zoneId", z.id, "spatials", len(content.Spatials))

	for _, p := range portals {
		g.attachPortal(p)
	}
	return nil
}

func (g *Graph) attachPortal(p *Portal) {
	n, ok := g.nodes[p.zone]
	switch {
	case !ok:
		g.publisher.Publish(core.TopicPortalZoneAttachmentFailed,
			core.PortalZoneAttachmentFailed{PortalID: p.id, ZoneID: p.zone, Code: core.ErrorCodeZoneNotFound})
		g.logger.Warn("Portal zone not found", "portalId", p.id, "zoneId", p.zone)
	case !isZone(n):
		g.publisher.Publish(core.TopicPortalZoneAttachmentFailed,
			core.PortalZoneAttachmentFailed{PortalID: p.id, ZoneID: p.zone, Code: core.ErrorCodeNotAZone})
		g.logger.Warn("Portal target is not a zone", "portalId", p.id, "zoneId", p.zone)
	default:
		g.publisher.Publish(core.TopicPortalZoneAttached, core.PortalZoneAttached{PortalID: p.id, ZoneID: p.zone})
	}
}

func isZone(n Node) bool {
	_, ok := n.(*Zone)
	return ok
}

// FailHydration marks a loading zone Failed. It stays Failed until Retry.
func (g *Graph) FailHydration(id core.ID, code core.ErrorCode, reason string) error {
	z, ok := g.Zone(id)
	if !ok {
		return fmt.Errorf("%w: zone %s", ErrNotFound, id)
	}
	if z.Status() != lazy.Loading {
		return fmt.Errorf("%w: zone %s is %v", lazy.ErrInvalidTransition, id, z.Status())
	}
	g.fail(z, code, reason)
	return nil
}

func (g *Graph) fail(z *Zone, code core.ErrorCode, reason string) {
	if code == core.ErrorCodeNone {
		code = core.ErrorCodeLoadFailed
	}
	_ = z.state.Fail(code)
	g.metrics.recordFailure(z.id, code)
	g.publisher.Publish(core.TopicHydrationFailed, core.HydrationFailed{ZoneID: z.id, Code: code, Reason: reason})
	g.logger.Error("Zone hydration failed", "zoneId", z.id, "code", code, "reason", reason)
}

// Retry issues a new hydrate request for a Failed zone. When the request cannot be
// enqueued the zone falls back to Ghost so the next visit asks again.
func (g *Graph) Retry(id core.ID) error {
	z, ok := g.Zone(id)
	if !ok {
		return fmt.Errorf("%w: zone %s", ErrNotFound, id)
	}
	if err := z.state.Retry(); err != nil {
		return fmt.Errorf("retry zone %s: %w", id, err)
	}
	g.metrics.recordRequest(id)
	if err := g.requester.RequestHydrate(id); err != nil {
		_ = z.state.Revert()
		return fmt.Errorf("retry zone %s: %w", id, err)
	}
	g.logger.Info("Hydrate retried", "zoneId", id)
	return nil
}

// Post queues a hydrate result. It is safe to call from any goroutine.
func (g *Graph) Post(r core.HydrateResult) {
	g.pending.Push(r)
}

// Pending is the number of results waiting for ApplyPending.
func (g *Graph) Pending() int { return g.pending.Len() }

// ApplyPending applies every posted result on the calling goroutine and returns how
// many were applied. Results for unknown zones are dropped.
func (g *Graph) ApplyPending() int {
	results := g.pending.GetAndEmpty()
	applied := 0
	for _, r := range results {
		var err error
		if r.Failed() {
			err = g.FailHydration(r.ZoneID, r.Code, r.Reason)
		} else {
			if r.Content.ZoneID == "" {
				r.Content.ZoneID = r.ZoneID
			}
			err = g.ApplyContent(r.Content)
		}
		if err != nil {
			g.logger.Warn("Hydrate result not applied", "zoneId", r.ZoneID, "error", err)
			continue
		}
		applied++
	}
	return applied
}

// Stats is a point-in-time summary of the graph.
type Stats struct {
	Nodes         int                 `json:"nodes"`
	Zones         map[lazy.Status]int `json:"-"`
	Pending       int                 `json:"pending"`
	StartZone     core.ID             `json:"startZone,omitempty"`
	OutsideRegion core.ID             `json:"outsideRegion,omitempty"`
}

// Stats counts nodes and zones per lazy status.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:         len(g.nodes),
		Zones:         make(map[lazy.Status]int),
		Pending:       g.pending.Len(),
		StartZone:     g.root.startZone,
		OutsideRegion: g.root.outside,
	}
	for _, z := range g.Zones() {
		s.Zones[z.Status()]++
	}
	return s
}
