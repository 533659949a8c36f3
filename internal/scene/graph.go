// Package scene is the spatial graph: an id-indexed registry of nodes rooted at a
// management node, with portal traversal and lazily hydrated zones.
package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/internal/parser"
	"github.com/OCAP2/portalview/internal/queue"
	"github.com/OCAP2/portalview/pkg/core"
)

// RootID is the id of the management node.
const RootID core.ID = ":ROOT:"

var (
	// ErrDataNotReady is returned by a zone visit while its content is loading or failed.
	ErrDataNotReady = errors.New("zone data not ready")
	// ErrNullCullerCamera is returned when the culler has no camera.
	ErrNullCullerCamera = errors.New("culler has no camera")
	// ErrNotFound is returned when an id is not in the registry.
	ErrNotFound = errors.New("spatial not found")
	// ErrDuplicateID is returned when constituting an id already in the registry.
	ErrDuplicateID = errors.New("duplicate spatial id")
	// ErrWrongKind is returned when an id resolves to an unexpected node type.
	ErrWrongKind = errors.New("wrong spatial kind")
)

// HydrateRequester enqueues a request to load a zone's content. It must not block.
type HydrateRequester interface {
	RequestHydrate(zoneID core.ID) error
}

// HydrateRequesterFunc adapts a function to HydrateRequester.
type HydrateRequesterFunc func(zoneID core.ID) error

// RequestHydrate calls f.
func (f HydrateRequesterFunc) RequestHydrate(zoneID core.ID) error { return f(zoneID) }

var errNoRequester = errors.New("no hydrate requester")

// Options are the collaborators of a Graph. Everything is optional.
type Options struct {
	Logger    *slog.Logger
	Publisher core.Publisher
	Requester HydrateRequester
	Parser    *parser.Parser
}

// Graph owns every node. It is mutated and traversed by the frame thread only;
// hydrate results from other goroutines go through Post.
type Graph struct {
	nodes map[core.ID]Node
	root  *Management

	logger    *slog.Logger
	publisher core.Publisher
	requester HydrateRequester
	parser    *parser.Parser

	pending *queue.Queue[core.HydrateResult]
	metrics *metrics
}

// NewGraph creates a graph holding only the management node.
func NewGraph(opts Options) (*Graph, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = core.NopPublisher
	}
	if opts.Requester == nil {
		opts.Requester = HydrateRequesterFunc(func(core.ID) error { return errNoRequester })
	}
	if opts.Parser == nil {
		opts.Parser = parser.NewParser(opts.Logger)
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	root := &Management{nodeBase: newBase(RootID, "", math32.Vector3{}, core.CullNever)}
	g := &Graph{
		nodes:     map[core.ID]Node{RootID: root},
		root:      root,
		logger:    opts.Logger,
		publisher: opts.Publisher,
		requester: opts.Requester,
		parser:    opts.Parser,
		pending:   queue.New[core.HydrateResult](),
		metrics:   m,
	}
	return g, nil
}

// SetRequester replaces the hydrate requester. It exists because the worker that
// serves requests is usually built after the graph.
func (g *Graph) SetRequester(r HydrateRequester) {
	if r == nil {
		r = HydrateRequesterFunc(func(core.ID) error { return errNoRequester })
	}
	g.requester = r
}

// Root returns the management node.
func (g *Graph) Root() *Management { return g.root }

// Len is the number of registered nodes, the root included.
func (g *Graph) Len() int { return len(g.nodes) }

// Find looks a node up by id.
func (g *Graph) Find(id core.ID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Zone looks a zone up by id.
func (g *Graph) Zone(id core.ID) (*Zone, bool) {
	z, ok := g.nodes[id].(*Zone)
	return z, ok
}

// Portal looks a portal up by id.
func (g *Graph) Portal(id core.ID) (*Portal, bool) {
	p, ok := g.nodes[id].(*Portal)
	return p, ok
}

// Zones returns every zone in the registry, the out-region included.
func (g *Graph) Zones() []*Zone {
	var out []*Zone
	for _, n := range g.nodes {
		if z, ok := n.(*Zone); ok {
			out = append(out, z)
		}
	}
	return out
}

// NewZone registers a ghost zone from its skeleton as a child of the root. An
// outside skeleton becomes the out-region.
func (g *Graph) NewZone(skel core.ZoneSkeleton) (*Zone, error) {
	z, err := g.newZone(RootID, skel, lazy.State{})
	if err != nil {
		return nil, err
	}
	if skel.Outside {
		if err := g.AttachOutsideRegion(z.id); err != nil {
			return z, err
		}
	}
	return z, nil
}

func (g *Graph) newZone(parent core.ID, skel core.ZoneSkeleton, state lazy.State) (*Zone, error) {
	if _, ok := g.nodes[skel.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, skel.ID)
	}
	p, ok := g.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("%w: parent %s", ErrNotFound, parent)
	}
	node, err := g.parser.ParseGroup(skel.Description)
	if err != nil {
		return nil, fmt.Errorf("zone %s: %w", skel.ID, err)
	}

	z := &Zone{
		nodeBase:     newBase(skel.ID, parent, node.Position, node.Cull),
		local:        skel.Bound,
		region:       math32.B3Empty(),
		state:        state,
		parentPortal: skel.ParentPortal,
	}
	g.nodes[z.id] = z
	p.base().children = append(p.base().children, z.id)
	g.logger.Debug("Zone registered", "zoneId", z.id, "status", z.Status())
	return z, nil
}

// AttachOutsideRegion hands a registered zone to the management node as its
// out-region. The zone leaves the root's children: it is only entered when the
// camera is in no interior zone, or through a portal.
func (g *Graph) AttachOutsideRegion(id core.ID) error {
	fail := func(code core.ErrorCode, err error) error {
		g.publisher.Publish(core.TopicOutsideRegionAttachmentFailed,
			core.OutsideRegionAttachmentFailed{ZoneID: id, Code: code})
		return err
	}

	n, ok := g.nodes[id]
	if !ok {
		return fail(core.ErrorCodeZoneNotFound, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	z, ok := n.(*Zone)
	if !ok {
		return fail(core.ErrorCodeNotAZone, fmt.Errorf("%w: %s is not a zone", ErrWrongKind, id))
	}
	if z.parentPortal != "" {
		return fail(core.ErrorCodeHasParentPortal,
			fmt.Errorf("%w: out-region %s has parent portal %s", ErrWrongKind, id, z.parentPortal))
	}

	if prev, ok := g.Zone(g.root.outside); ok && prev != z {
		prev.outside = false
	}
	if parent, ok := g.nodes[z.parent]; ok {
		parent.base().removeChild(z.id)
	}
	z.parent = RootID
	z.outside = true
	g.root.outside = z.id
	if g.root.startZone == z.id {
		g.root.startZone = ""
	}

	g.publisher.Publish(core.TopicOutsideRegionAttached, core.OutsideRegionAttached{ZoneID: id})
	g.logger.Info("Out-region attached", "zoneId", id)
	return nil
}

// OutsideRegion returns the attached out-region.
func (g *Graph) OutsideRegion() (*Zone, bool) {
	if g.root.outside == "" {
		return nil, false
	}
	return g.Zone(g.root.outside)
}

// Constitute builds a node from a persisted description under parent.
func (g *Graph) Constitute(parent core.ID, sd core.SpatialDescription) (Node, error) {
	if sd.ID == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if _, ok := g.nodes[sd.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, sd.ID)
	}
	p, ok := g.nodes[parent]
	if !ok {
		return nil, fmt.Errorf("%w: parent %s", ErrNotFound, parent)
	}

	var n Node
	switch sd.Kind {
	case core.KindGroup:
		spec, err := g.parser.ParseGroup(sd.Description)
		if err != nil {
			return nil, err
		}
		n = &Group{nodeBase: newBase(sd.ID, parent, spec.Position, spec.Cull)}
	case core.KindObject:
		spec, err := g.parser.ParseObject(sd.Description)
		if err != nil {
			return nil, err
		}
		n = &Object{nodeBase: newBase(sd.ID, parent, spec.Position, spec.Cull), local: spec.Bound}
	case core.KindPortal:
		spec, err := g.parser.ParsePortal(sd.Description)
		if err != nil {
			return nil, err
		}
		n = &Portal{
			nodeBase: newBase(sd.ID, parent, spec.Position, spec.Cull),
			quad:     spec.Quad,
			open:     spec.Open,
			zone:     spec.Zone,
		}
	case core.KindZone:
		skel, err := g.parser.ParseZone(sd.ID, sd.Description)
		if err != nil {
			return nil, err
		}
		if skel.Outside {
			return nil, fmt.Errorf("%w: nested zone %s cannot be the out-region", ErrWrongKind, sd.ID)
		}
		return g.newZone(parent, skel, lazy.State{})
	default:
		return nil, fmt.Errorf("%w: unknown kind %q for %s", ErrWrongKind, sd.Kind, sd.ID)
	}

	g.nodes[sd.ID] = n
	p.base().children = append(p.base().children, sd.ID)
	return n, nil
}

// Remove deletes a node and its subtree. The root cannot be removed.
func (g *Graph) Remove(id core.ID) error {
	if id == RootID {
		return fmt.Errorf("%w: cannot remove the root", ErrWrongKind)
	}
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if parent, ok := g.nodes[n.Parent()]; ok {
		parent.base().removeChild(id)
	}
	g.removeSubtree(id)
	return nil
}

func (g *Graph) removeSubtree(id core.ID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.Children() {
		g.removeSubtree(c)
	}
	delete(g.nodes, id)
	if g.root.startZone == id {
		g.root.startZone = ""
	}
	if g.root.outside == id {
		g.root.outside = ""
	}
}

// SetPortalOpen opens or closes a portal.
func (g *Graph) SetPortalOpen(id core.ID, open bool) error {
	p, ok := g.Portal(id)
	if !ok {
		return fmt.Errorf("%w: portal %s", ErrNotFound, id)
	}
	p.open = open
	return nil
}

// SetLocalPosition moves a node relative to its parent. World transforms follow
// on the next UpdateWorld.
func (g *Graph) SetLocalPosition(id core.ID, pos math32.Vector3) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n.base().position = pos
	return nil
}

// UpdateWorld recomputes world transforms top-down and world bounds bottom-up.
func (g *Graph) UpdateWorld() {
	g.updateNode(g.root, *math32.Identity4())
	if out, ok := g.OutsideRegion(); ok {
		g.updateNode(out, *math32.Identity4())
	}
}

func (g *Graph) updateNode(n Node, parentWorld math32.Matrix4) {
	b := n.base()
	local := translation(b.position)
	var world math32.Matrix4
	world.MulMatrices(&parentWorld, &local)

	bound := math32.B3Empty()
	switch v := n.(type) {
	case *Object:
		b.world = world
		bound = transformBox(v.local, &world)
	case *Portal:
		v.place(world)
		for _, q := range v.worldQuad {
			bound.ExpandByPoint(q)
		}
	case *Zone:
		b.world = world
		v.region = transformBox(v.local, &world)
		bound = v.region
	default:
		b.world = world
	}

	for _, id := range b.children {
		c, ok := g.nodes[id]
		if !ok {
			continue
		}
		if z, ok := c.(*Zone); ok && z.outside {
			continue
		}
		g.updateNode(c, world)
		if cb := c.WorldBound(); !cb.IsEmpty() {
			bound = bound.Union(cb)
		}
	}
	b.bound = bound
}

func transformBox(b math32.Box3, m *math32.Matrix4) math32.Box3 {
	if b.IsEmpty() {
		return b
	}
	return b.MulMatrix4(m)
}
