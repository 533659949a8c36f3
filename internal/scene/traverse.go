package scene

import (
	"errors"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/culler"
	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/pkg/core"
)

var _ culler.Cullable = (*Graph)(nil)

// traversal is the per-call context of one culling pass.
type traversal struct {
	g *Graph
	c *culler.Culler
}

// CullVisibleSet implements culler.Cullable, starting at the management node.
func (g *Graph) CullVisibleSet(c *culler.Culler, noCull bool) error {
	t := traversal{g: g, c: c}
	return t.cullManagement(g.root, noCull)
}

// recoverable errors leave a hole in the visible set instead of aborting the pass
func recoverable(err error) bool {
	return err == nil || errors.Is(err, ErrDataNotReady)
}

// visit scopes plane activation to n's subtree, applies its cull mode and bound test,
// then lets the variant cull itself.
func (t *traversal) visit(n Node, noCull bool) error {
	b := n.base()
	if b.cull == core.CullAlways {
		return nil
	}

	state := t.c.PlaneState()
	defer t.c.SetPlaneState(state)

	if !noCull && b.cull == core.CullDynamic && bounded(n) && !t.c.IsVisible(b.bound) {
		return nil
	}
	return t.cullSelf(n, noCull)
}

// bounded reports whether a node's bound can be tested. The out-region is
// unbounded and a node without geometry yet has nothing to test.
func bounded(n Node) bool {
	if z, ok := n.(*Zone); ok && z.outside {
		return false
	}
	if _, ok := n.(*Management); ok {
		return false
	}
	return !n.WorldBound().IsEmpty()
}

func (t *traversal) cullSelf(n Node, noCull bool) error {
	switch v := n.(type) {
	case *Object:
		t.c.Insert(v)
		return t.traverseChildren(v, noCull)
	case *Group:
		return t.traverseChildren(v, noCull)
	case *Portal:
		return t.cullPortal(v, noCull)
	case *Zone:
		return t.cullZone(v, noCull)
	case *Management:
		return t.cullManagement(v, noCull)
	default:
		return nil
	}
}

func (t *traversal) traverseChildren(n Node, noCull bool) error {
	for _, id := range n.Children() {
		child, ok := t.g.nodes[id]
		if !ok {
			continue
		}
		if err := t.visit(child, noCull); !recoverable(err) {
			return err
		}
	}
	return nil
}

func (t *traversal) cullZone(z *Zone, noCull bool) error {
	switch z.state.Status() {
	case lazy.Ghost:
		t.g.requestHydrate(z)
		return nil
	case lazy.Loading, lazy.Failed:
		return ErrDataNotReady
	}

	if z.visiting {
		return nil
	}
	z.visiting = true
	defer func() { z.visiting = false }()
	return t.traverseChildren(z, noCull)
}

func (t *traversal) cullPortal(p *Portal, noCull bool) error {
	if !p.open || p.zone == "" {
		return nil
	}
	zone, ok := t.g.Zone(p.zone)
	if !ok {
		return nil
	}

	if !noCull {
		if !t.c.IsPolygonVisible(p.worldQuad[:], true) {
			return nil
		}
		if p.center.Sub(t.c.Camera().Location()).Dot(p.plane.Normal) < 0 {
			// seen from the adjacent zone's side
			return nil
		}
		if t.c.Options().PortalNarrowing {
			pushed := t.narrow(p)
			defer func() {
				for i := 0; i < pushed; i++ {
					t.c.PopAdditionalPlane()
				}
			}()
		}
	}

	// the adjacent zone lies outside the bounds that cleared bits so far; the
	// portal's own visit restores the caller's state
	t.c.SetPlaneState(^uint32(0))
	if err := t.visit(zone, noCull); !recoverable(err) {
		return err
	}
	return nil
}

// narrow pushes one plane per portal edge through the eye so the adjacent zone is
// culled against the portal opening. It pushes nothing when the eye lies in the
// portal plane or the plane list is full, and returns the number of planes pushed.
func (t *traversal) narrow(p *Portal) int {
	eye := t.c.Camera().Location()
	var planes [4]culler.Plane
	for i := range p.worldQuad {
		a, b := p.worldQuad[i], p.worldQuad[(i+1)%4]
		pl, ok := culler.PlaneFromPoints(eye, a, b, p.center)
		if !ok {
			return 0
		}
		planes[i] = pl
	}
	if t.c.PlaneCount()+len(planes) > culler.MaxPlanes {
		return 0
	}
	for _, pl := range planes {
		if err := t.c.PushAdditionalPlane(pl); err != nil {
			return 0
		}
	}
	return len(planes)
}

func (t *traversal) cullManagement(m *Management, noCull bool) error {
	cam := t.c.Camera()
	if cam == nil {
		return ErrNullCullerCamera
	}

	if noCull {
		if err := t.traverseChildren(m, true); err != nil {
			return err
		}
		if out, ok := t.g.OutsideRegion(); ok {
			if err := t.visit(out, true); !recoverable(err) {
				return err
			}
		}
		return nil
	}

	eye := cam.Location()
	if start := t.g.startZone(eye); start != nil {
		m.startZone = start.id
		if err := t.visit(start, false); !recoverable(err) {
			return err
		}
		return nil
	}

	m.startZone = ""
	if out, ok := t.g.OutsideRegion(); ok {
		if err := t.visit(out, false); !recoverable(err) {
			return err
		}
		return nil
	}
	return t.traverseChildren(m, false)
}

// startZone returns the zone containing eye, reusing the cached one while it still does.
func (g *Graph) startZone(eye math32.Vector3) *Zone {
	if z, ok := g.Zone(g.root.startZone); ok && !z.outside && z.region.ContainsPoint(eye) {
		return z
	}
	return g.findContaining(g.root, eye)
}

// findContaining is a depth-first point-in-bound search over the zone tree. It
// returns the first zone whose region contains eye.
func (g *Graph) findContaining(n Node, eye math32.Vector3) *Zone {
	for _, id := range n.Children() {
		child, ok := g.nodes[id]
		if !ok {
			continue
		}
		if z, ok := child.(*Zone); ok && !z.outside && !z.region.IsEmpty() && z.region.ContainsPoint(eye) {
			return z
		}
		if found := g.findContaining(child, eye); found != nil {
			return found
		}
	}
	return nil
}

func (g *Graph) requestHydrate(z *Zone) {
	if !z.state.RequestHydrate() {
		return
	}
	g.metrics.recordRequest(z.id)
	if err := g.requester.RequestHydrate(z.id); err != nil {
		_ = z.state.Revert()
		g.logger.Warn("Hydrate request not enqueued", "zoneId", z.id, "error", err)
		return
	}
	g.logger.Debug("Hydrate requested", "zoneId", z.id)
}
