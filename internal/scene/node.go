package scene

import (
	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/culler"
	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/pkg/core"
)

// Node is one of Group, Object, Portal, Zone or Management. The set is closed:
// traversal switches on the concrete type.
type Node interface {
	ID() core.ID
	Parent() core.ID
	Children() []core.ID
	LocalPosition() math32.Vector3
	WorldMatrix() math32.Matrix4
	WorldBound() math32.Box3
	CullMode() core.CullMode

	base() *nodeBase
}

type nodeBase struct {
	id       core.ID
	parent   core.ID
	children []core.ID

	position math32.Vector3
	world    math32.Matrix4
	bound    math32.Box3 // world, own geometry plus children

	cull core.CullMode
}

func newBase(id, parent core.ID, position math32.Vector3, cull core.CullMode) nodeBase {
	if cull == "" {
		cull = core.CullDynamic
	}
	return nodeBase{
		id:       id,
		parent:   parent,
		position: position,
		world:    translation(position),
		bound:    math32.B3Empty(),
		cull:     cull,
	}
}

func translation(v math32.Vector3) math32.Matrix4 {
	var m math32.Matrix4
	m.SetTranslation(v.X, v.Y, v.Z)
	return m
}

func (b *nodeBase) ID() core.ID                   { return b.id }
func (b *nodeBase) Parent() core.ID               { return b.parent }
func (b *nodeBase) Children() []core.ID           { return b.children }
func (b *nodeBase) LocalPosition() math32.Vector3 { return b.position }
func (b *nodeBase) WorldMatrix() math32.Matrix4   { return b.world }
func (b *nodeBase) WorldBound() math32.Box3       { return b.bound }
func (b *nodeBase) CullMode() core.CullMode       { return b.cull }
func (b *nodeBase) base() *nodeBase               { return b }

func (b *nodeBase) removeChild(id core.ID) {
	for i, c := range b.children {
		if c == id {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

// Group is a plain transform node.
type Group struct {
	nodeBase
}

// Object is a leaf spatial. It is what the visible set is made of.
type Object struct {
	nodeBase
	local math32.Box3
}

var _ culler.Spatial = (*Object)(nil)

// SpatialID implements culler.Spatial.
func (o *Object) SpatialID() core.ID { return o.id }

// LocalBound is the object's bound before the world transform.
func (o *Object) LocalBound() math32.Box3 { return o.local }

// Portal is a quad opening into an adjacent zone, referenced by id.
type Portal struct {
	nodeBase
	quad [4]math32.Vector3

	worldQuad [4]math32.Vector3
	center    math32.Vector3
	plane     culler.Plane
	placed    bool // worldQuad matches world

	open bool
	zone core.ID
}

// Open reports whether visibility passes through the portal.
func (p *Portal) Open() bool { return p.open }

// Zone is the id of the adjacent zone.
func (p *Portal) Zone() core.ID { return p.zone }

// WorldQuad is the quad in world space, as of the last UpdateWorld.
func (p *Portal) WorldQuad() [4]math32.Vector3 { return p.worldQuad }

// Plane is the quad's plane. Its normal points into the adjacent zone.
func (p *Portal) Plane() culler.Plane { return p.plane }

// place recomputes the world quad and plane when the world transform moved.
func (p *Portal) place(world math32.Matrix4) {
	if p.placed && p.world == world {
		return
	}
	p.world = world
	var sum math32.Vector3
	for i, v := range p.quad {
		p.worldQuad[i] = v.MulMatrix4(&world)
		sum = sum.Add(p.worldQuad[i])
	}
	p.center = sum.MulScalar(0.25)
	q := p.worldQuad
	p.plane = culler.NewPlane(q[1].Sub(q[0]).Cross(q[3].Sub(q[0])), q[0])
	p.placed = true
}

// Zone is a lazily streamed region. Its children are only meaningful while Ready.
// The out-region is a Zone flagged outside and owned by the management node.
type Zone struct {
	nodeBase
	local  math32.Box3
	region math32.Box3 // world, skeleton only

	state        lazy.State
	parentPortal core.ID
	outside      bool
	visiting     bool
}

// Status is the zone's lazy status.
func (z *Zone) Status() lazy.Status { return z.state.Status() }

// FailureCode is the code of the last hydration failure.
func (z *Zone) FailureCode() core.ErrorCode { return z.state.FailureCode() }

// ParentPortal is metadata naming the portal the zone is entered through.
func (z *Zone) ParentPortal() core.ID { return z.parentPortal }

// Outside reports whether the zone is the out-region.
func (z *Zone) Outside() bool { return z.outside }

// Visiting is true only while the zone is being traversed.
func (z *Zone) Visiting() bool { return z.visiting }

// Region is the skeleton bound in world space, used for camera containment.
func (z *Zone) Region() math32.Box3 { return z.region }

// Management is the root. It owns the out-region and caches the zone the camera
// was last found in.
type Management struct {
	nodeBase
	outside   core.ID
	startZone core.ID
}

// OutsideRegion is the id of the attached out-region, empty when there is none.
func (m *Management) OutsideRegion() core.ID { return m.outside }

// StartZone is the cached zone believed to contain the camera.
func (m *Management) StartZone() core.ID { return m.startZone }
