// Package camera holds the camera entity: location, orthonormal basis, owned
// frustum and the view/world matrices derived from them.
package camera

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/frustum"
	"github.com/OCAP2/portalview/pkg/core"
)

var (
	// ErrNoFrustum is returned by operations that need projection parameters.
	ErrNoFrustum = errors.New("camera has no frustum")
	// ErrDegenerateFrame is returned when the look direction is zero or parallel to up.
	ErrDegenerateFrame = errors.New("degenerate camera frame")
	// ErrInvalidArgument is returned for out-of-range operation arguments.
	ErrInvalidArgument = errors.New("invalid camera argument")
)

const epsilon = 1e-6

// fov limits applied by Zoom
const (
	minFOV = 0.01
	maxFOV = math32.Pi - 0.01
)

var worldUp = math32.Vec3(0, 1, 0)

// Camera is a view point in the scene. Mutations are not safe for concurrent use and
// must not overlap with a culling pass that reads the camera.
type Camera struct {
	id         core.ID
	handedness frustum.Handedness

	location math32.Vector3
	lookAt   math32.Vector3
	forward  math32.Vector3 // camera +Z axis
	right    math32.Vector3
	up       math32.Vector3

	frustum    frustum.Frustum
	hasFrustum bool

	view  math32.Matrix4
	world math32.Matrix4

	version   uint64
	publisher core.Publisher
}

// New returns a camera at the origin with the identity basis. A left-handed camera
// looks down +Z and a right-handed one down -Z.
func New(id core.ID, h frustum.Handedness, publisher core.Publisher) *Camera {
	if publisher == nil {
		publisher = core.NopPublisher
	}
	c := &Camera{
		id:         id,
		handedness: h,
		forward:    math32.Vec3(0, 0, 1),
		right:      math32.Vec3(1, 0, 0),
		up:         math32.Vec3(0, 1, 0),
		publisher:  publisher,
	}
	c.lookAt = c.ViewDirection()
	c.updateMatrices()
	return c
}

func (c *Camera) ID() core.ID                    { return c.id }
func (c *Camera) Handedness() frustum.Handedness { return c.handedness }
func (c *Camera) Location() math32.Vector3       { return c.location }
func (c *Camera) Forward() math32.Vector3        { return c.forward }
func (c *Camera) Right() math32.Vector3          { return c.right }
func (c *Camera) Up() math32.Vector3             { return c.up }
func (c *Camera) LookAt() math32.Vector3         { return c.lookAt }
func (c *Camera) Version() uint64                { return c.version }

// ViewMatrix maps world space into camera space.
func (c *Camera) ViewMatrix() math32.Matrix4 { return c.view }

// WorldMatrix is the inverse of ViewMatrix.
func (c *Camera) WorldMatrix() math32.Matrix4 { return c.world }

// ViewDirection is the world direction the camera looks along.
func (c *Camera) ViewDirection() math32.Vector3 {
	if c.handedness == frustum.RightHanded {
		return c.forward.MulScalar(-1)
	}
	return c.forward
}

// Frustum returns the owned frustum and whether one was set.
func (c *Camera) Frustum() (frustum.Frustum, bool) { return c.frustum, c.hasFrustum }

// HasFrustum reports whether SetFrustum was called.
func (c *Camera) HasFrustum() bool { return c.hasFrustum }

// SetFrustum replaces the frustum wholesale. Its handedness must match the camera.
func (c *Camera) SetFrustum(f frustum.Frustum) error {
	if f.IsZero() {
		return fmt.Errorf("%w: zero frustum", ErrInvalidArgument)
	}
	if f.Handedness() != c.handedness {
		return fmt.Errorf("%w: frustum is %v, camera is %v", ErrInvalidArgument, f.Handedness(), c.handedness)
	}
	c.frustum = f
	c.hasFrustum = true
	c.touch()
	return nil
}

// SetFrame places the camera at eye looking along eyeToLookAt. The basis is rebuilt
// from up with cross products so it stays orthonormal whatever up is passed in.
func (c *Camera) SetFrame(eye, eyeToLookAt, up math32.Vector3) error {
	if eyeToLookAt.Length() < epsilon {
		return fmt.Errorf("%w: zero look direction", ErrDegenerateFrame)
	}
	dir := eyeToLookAt.Normal()

	forward := dir
	if c.handedness == frustum.RightHanded {
		forward = dir.MulScalar(-1)
	}
	right := up.Cross(forward)
	if right.Length() < epsilon {
		return fmt.Errorf("%w: look direction parallel to up", ErrDegenerateFrame)
	}
	right = right.Normal()

	c.location = eye
	c.lookAt = eye.Add(eyeToLookAt)
	c.forward = forward
	c.right = right
	c.up = forward.Cross(right)
	c.updateMatrices()
	c.touch()
	return nil
}

// SetLocation moves the camera and keeps its orientation. The look-at point moves along.
func (c *Camera) SetLocation(eye math32.Vector3) {
	c.lookAt = c.lookAt.Add(eye.Sub(c.location))
	c.location = eye
	c.updateMatrices()
	c.touch()
}

// Zoom narrows the view by factor: the fov for perspective, the near extents for ortho.
func (c *Camera) Zoom(factor float32) error {
	if !c.hasFrustum {
		return ErrNoFrustum
	}
	if !(factor > 0) || math32.IsInf(factor, 1) {
		return fmt.Errorf("%w: zoom factor %v", ErrInvalidArgument, factor)
	}

	p := c.frustum.Params()
	if p.Projection == frustum.Ortho {
		p.NearWidth, p.NearHeight = p.NearWidth/factor, p.NearHeight/factor
		p.Aspect = p.NearWidth / p.NearHeight
	} else {
		p.FOV = math32.Min(math32.Max(p.FOV/factor, minFOV), maxFOV)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: zoom by %v: %w", ErrInvalidArgument, factor, err)
	}
	c.frustum = frustum.Build(p)
	c.touch()
	return nil
}

// Move translates the camera along its own axes.
func (c *Camera) Move(forward, right, up float32) error {
	if !c.hasFrustum {
		return ErrNoFrustum
	}
	delta := c.ViewDirection().MulScalar(forward).
		Add(c.right.MulScalar(right)).
		Add(c.up.MulScalar(up))
	c.SetLocation(c.location.Add(delta))
	return nil
}

// MoveXZ translates the camera along its axes flattened onto the XZ plane, so the
// height stays the same whatever the pitch.
func (c *Camera) MoveXZ(forward, right float32) error {
	if !c.hasFrustum {
		return ErrNoFrustum
	}
	delta := flatten(c.ViewDirection()).MulScalar(forward).
		Add(flatten(c.right).MulScalar(right))
	c.SetLocation(c.location.Add(delta))
	return nil
}

// SphereRotate orbits the eye around the look-at point: yaw about world Y, then
// pitch about the camera right axis. Angles are in radians.
func (c *Camera) SphereRotate(yaw, pitch float32) error {
	if !c.hasFrustum {
		return ErrNoFrustum
	}
	yq := math32.NewQuatAxisAngle(worldUp, yaw)
	offset := c.location.Sub(c.lookAt).MulQuat(yq)
	right := c.right.MulQuat(yq)
	up := c.up.MulQuat(yq)

	pq := math32.NewQuatAxisAngle(right, pitch)
	offset = offset.MulQuat(pq)
	up = up.MulQuat(pq)

	eye := c.lookAt.Add(offset)
	return c.SetFrame(eye, c.lookAt.Sub(eye), up)
}

// ShiftLookAt moves the look-at point by delta and re-aims the camera at it.
func (c *Camera) ShiftLookAt(delta math32.Vector3) error {
	if !c.hasFrustum {
		return ErrNoFrustum
	}
	target := c.lookAt.Add(delta)
	return c.SetFrame(c.location, target.Sub(c.location), c.up)
}

func (c *Camera) updateMatrices() {
	c.world.SetBasis(c.right, c.up, c.forward)
	c.world.SetPos(c.location)
	// orthonormal basis, always invertible
	_ = c.view.SetInverse(&c.world)
}

func (c *Camera) touch() {
	c.version++
	c.publisher.Publish(core.TopicCameraUpdated, core.CameraUpdated{CameraID: c.id, Version: c.version})
}

func flatten(v math32.Vector3) math32.Vector3 {
	v.Y = 0
	if v.Length() < epsilon {
		return math32.Vector3{}
	}
	return v.Normal()
}
