// Package culler turns a camera's frustum into world-space clip planes, tests bounds
// and polygons against them and collects the visible set of one traversal.
package culler

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/camera"
	"github.com/OCAP2/portalview/internal/frustum"
	"github.com/OCAP2/portalview/pkg/core"
)

var (
	// ErrCameraNotReady is returned when no camera is bound or it has no frustum.
	ErrCameraNotReady = errors.New("culler camera not ready")
	// ErrNullSceneGraph is returned by ComputeVisibleSet without a root.
	ErrNullSceneGraph = errors.New("null scene graph")
	// ErrPlaneLimit is returned when pushing more than MaxPlanes planes.
	ErrPlaneLimit = errors.New("clip plane limit reached")
)

// Base plane indices, in list order.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneTop
	PlaneBottom
	PlaneFar
	PlaneNear

	BasePlanes
)

// MaxPlanes bounds the plane list, one activation bit per plane.
const MaxPlanes = 32

// DefaultOuterMargin is the distance the outer planes are pushed out by.
const DefaultOuterMargin float32 = 2

// Cullable is a scene root able to cull itself into a culler.
type Cullable interface {
	CullVisibleSet(c *Culler, noCull bool) error
}

// Spatial is what ends up in the visible set.
type Spatial interface {
	SpatialID() core.ID
	WorldBound() math32.Box3
}

// Options tune plane derivation and portal traversal.
type Options struct {
	// OuterClip builds the margin-expanded plane set used by IsOutVisibility.
	OuterClip bool
	// OuterMargin is the expansion distance, DefaultOuterMargin when zero.
	OuterMargin float32
	// PortalNarrowing lets portals push their edge planes before recursing.
	PortalNarrowing bool
}

// DefaultOptions returns outer clipping off and the default margin.
func DefaultOptions() Options {
	return Options{OuterMargin: DefaultOuterMargin}
}

// Culler is owned by one traversal at a time. It holds the camera but does not own it.
type Culler struct {
	cam  *camera.Camera
	opts Options

	planes []Plane
	outer  []Plane
	active uint32

	visible []Spatial
	seen    map[core.ID]struct{}
}

// New binds a culler to cam, which may be nil until SetCamera.
func New(cam *camera.Camera, opts Options) *Culler {
	if opts.OuterMargin <= 0 {
		opts.OuterMargin = DefaultOuterMargin
	}
	c := &Culler{
		opts:   opts,
		planes: make([]Plane, 0, MaxPlanes),
		outer:  make([]Plane, 0, MaxPlanes),
		seen:   make(map[core.ID]struct{}),
	}
	c.SetCamera(cam)
	return c
}

// Camera returns the bound camera, or nil.
func (c *Culler) Camera() *camera.Camera { return c.cam }

// Options returns the options the culler was created with.
func (c *Culler) Options() Options { return c.opts }

// SetCamera rebinds the culler and re-derives its planes. Additional planes are dropped.
func (c *Culler) SetCamera(cam *camera.Camera) {
	c.cam = cam
	c.planes = c.planes[:0]
	c.outer = c.outer[:0]
	c.active = 0
	if cam != nil && cam.HasFrustum() {
		_ = c.UpdateFrustumPlanes()
	}
}

// UpdateFrustumPlanes derives the six base planes (and their outer copies) from the
// camera. Additional planes already pushed are kept after them.
func (c *Culler) UpdateFrustumPlanes() error {
	if c.cam == nil {
		return ErrCameraNotReady
	}
	f, ok := c.cam.Frustum()
	if !ok {
		return ErrCameraNotReady
	}

	base, outer := c.derive(f)
	if len(c.planes) < BasePlanes {
		c.planes = append(c.planes[:0], base[:]...)
		c.outer = append(c.outer[:0], outer[:]...)
	} else {
		copy(c.planes, base[:])
		copy(c.outer, outer[:])
	}
	c.resetActivation()
	return nil
}

// reference is a plane normal and a point on it, both in camera space.
type reference struct {
	normal math32.Vector3
	point  math32.Vector3
}

func (c *Culler) derive(f frustum.Frustum) (base, outer [BasePlanes]Plane) {
	// camera space looks down +Z for left-handed cameras and -Z for right-handed ones
	s := float32(1)
	if c.cam.Handedness() == frustum.RightHanded {
		s = -1
	}

	var sinV, cosV, sinH, cosH float32
	if f.IsOrtho() {
		// pseudo angles: the pyramid from the eye through the near rectangle
		sinH, cosH = pseudoAngle(f.NearWidth() * 0.5 / f.NearZ())
		sinV, cosV = pseudoAngle(f.NearHeight() * 0.5 / f.NearZ())
	} else {
		sinV, cosV = math32.Sincos(f.FOV() * 0.5)
		sinH, cosH = math32.Sincos(f.HorizontalFOV() * 0.5)
	}

	var refs [BasePlanes]reference
	refs[PlaneLeft] = reference{math32.Vec3(cosH, 0, s*sinH), math32.Vector3{}}
	refs[PlaneRight] = reference{math32.Vec3(-cosH, 0, s*sinH), math32.Vector3{}}
	refs[PlaneTop] = reference{math32.Vec3(0, -cosV, s*sinV), math32.Vector3{}}
	refs[PlaneBottom] = reference{math32.Vec3(0, cosV, s*sinV), math32.Vector3{}}
	refs[PlaneFar] = reference{math32.Vec3(0, 0, -s), math32.Vec3(0, 0, s*f.FarZ())}
	refs[PlaneNear] = reference{math32.Vec3(0, 0, s), math32.Vector3{}}

	world := c.cam.WorldMatrix()
	back := math32.Vec3(0, 0, -s*c.opts.OuterMargin)
	for i, r := range refs {
		n := r.normal.MulMatrix4AsVector4(&world, 0).Normal()
		base[i] = NewPlane(n, r.point.MulMatrix4(&world))

		shifted := r.point.Add(back)
		if i == PlaneFar {
			shifted = r.point.Sub(back)
		}
		outer[i] = NewPlane(n, shifted.MulMatrix4(&world))
	}
	return base, outer
}

// pseudoAngle returns the sine and cosine of the angle whose tangent is t.
func pseudoAngle(t float32) (sin, cos float32) {
	n := math32.Vec2(1, t).Normal()
	return n.Y, n.X
}

func (c *Culler) resetActivation() {
	if len(c.planes) >= MaxPlanes {
		c.active = ^uint32(0)
		return
	}
	c.active = uint32(1)<<len(c.planes) - 1
}

// ComputeVisibleSet runs one culling pass from root. The visible set of the
// previous pass is discarded first.
func (c *Culler) ComputeVisibleSet(root Cullable) error {
	c.visible = c.visible[:0]
	clear(c.seen)
	c.resetActivation()

	if c.cam == nil || !c.cam.HasFrustum() {
		return ErrCameraNotReady
	}
	if root == nil {
		return ErrNullSceneGraph
	}
	if err := c.UpdateFrustumPlanes(); err != nil {
		return err
	}
	if err := root.CullVisibleSet(c, false); err != nil {
		return fmt.Errorf("cull visible set: %w", err)
	}
	return nil
}

// IsVisible tests an axis aligned world bound against the active planes, most
// recently added first. A plane the bound lies fully inside is deactivated so the
// rest of the subtree skips it; callers scope that with PlaneState/SetPlaneState.
func (c *Culler) IsVisible(b math32.Box3) bool {
	if b.IsEmpty() {
		return false
	}
	for i := len(c.planes) - 1; i >= 0; i-- {
		bit := uint32(1) << i
		if c.active&bit == 0 {
			continue
		}
		switch c.planes[i].Classify(b) {
		case Negative:
			return false
		case Positive:
			c.active &^= bit
		}
	}
	return true
}

// IsPolygonVisible rejects a polygon whose vertices all lie strictly outside one
// plane. Activation bits are ignored. With ignoreNearPlane the near plane is not
// tested, so a portal the eye stands in or just behind is kept.
func (c *Culler) IsPolygonVisible(vertices []math32.Vector3, ignoreNearPlane bool) bool {
	if len(vertices) == 0 {
		return false
	}
	for i, p := range c.planes {
		if ignoreNearPlane && i == PlaneNear {
			continue
		}
		outside := true
		for _, v := range vertices {
			if p.Distance(v) >= 0 {
				outside = false
				break
			}
		}
		if outside {
			return false
		}
	}
	return true
}

// IsOutVisibility reports whether b lies outside even the margin-expanded frustum.
// It is always false without outer clipping.
func (c *Culler) IsOutVisibility(b math32.Box3) bool {
	if !c.opts.OuterClip || b.IsEmpty() {
		return false
	}
	for _, p := range c.outer {
		if p.Classify(b) == Negative {
			return true
		}
	}
	return false
}

// PushAdditionalPlane appends a clip plane after the base ones. The plane starts active.
func (c *Culler) PushAdditionalPlane(p Plane) error {
	if len(c.planes) < BasePlanes {
		return ErrCameraNotReady
	}
	if len(c.planes) >= MaxPlanes {
		return ErrPlaneLimit
	}
	c.active |= uint32(1) << len(c.planes)
	c.planes = append(c.planes, p)
	c.outer = append(c.outer, p)
	return nil
}

// PopAdditionalPlane removes the most recently pushed plane. Base planes are never removed.
func (c *Culler) PopAdditionalPlane() {
	n := len(c.planes)
	if n <= BasePlanes {
		return
	}
	c.active &^= uint32(1) << (n - 1)
	c.planes = c.planes[:n-1]
	c.outer = c.outer[:n-1]
}

// RemoveAdditionalPlanes restores the base six planes.
func (c *Culler) RemoveAdditionalPlanes() {
	if len(c.planes) <= BasePlanes {
		return
	}
	c.planes = c.planes[:BasePlanes]
	c.outer = c.outer[:BasePlanes]
	c.active &= uint32(1)<<BasePlanes - 1
}

// Planes returns the current plane list. The slice is owned by the culler.
func (c *Culler) Planes() []Plane { return c.planes }

// OuterPlanes returns the outer plane list, always as long as Planes.
func (c *Culler) OuterPlanes() []Plane { return c.outer }

// PlaneCount is len(Planes()).
func (c *Culler) PlaneCount() int { return len(c.planes) }

// PlaneState returns the activation bits.
func (c *Culler) PlaneState() uint32 { return c.active }

// SetPlaneState restores bits saved with PlaneState. Bits past the plane count are dropped.
func (c *Culler) SetPlaneState(state uint32) {
	if len(c.planes) < MaxPlanes {
		state &= uint32(1)<<len(c.planes) - 1
	}
	c.active = state
}

// Insert adds s to the visible set unless an entry with the same id is already there.
func (c *Culler) Insert(s Spatial) {
	id := s.SpatialID()
	if _, ok := c.seen[id]; ok {
		return
	}
	c.seen[id] = struct{}{}
	c.visible = append(c.visible, s)
}

// VisibleSet returns the spatials accepted by the last pass in insertion order.
// The slice is reused by the next ComputeVisibleSet.
func (c *Culler) VisibleSet() []Spatial { return c.visible }
