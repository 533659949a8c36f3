// Package frustum models the view volume of a camera: projection parameters and
// the projection matrix derived from them.
package frustum

import (
	"errors"
	"fmt"

	"cogentcore.org/core/math32"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid frustum parameters")

// Projection selects the projection family.
type Projection int

const (
	Perspective Projection = iota
	Ortho
)

func (p Projection) String() string {
	switch p {
	case Perspective:
		return "perspective"
	case Ortho:
		return "ortho"
	default:
		return fmt.Sprintf("Projection(%d)", int(p))
	}
}

// Handedness of the coordinate system the camera works in.
type Handedness int

const (
	LeftHanded Handedness = iota
	RightHanded
)

func (h Handedness) String() string {
	switch h {
	case LeftHanded:
		return "left"
	case RightHanded:
		return "right"
	default:
		return fmt.Sprintf("Handedness(%d)", int(h))
	}
}

// Params are the inputs of a frustum. FOV is the vertical field of view in radians
// and only applies to Perspective; NearWidth/NearHeight only apply to Ortho.
type Params struct {
	Projection Projection
	Handedness Handedness
	FOV        float32
	NearWidth  float32
	NearHeight float32
	NearZ      float32
	FarZ       float32
	Aspect     float32
}

// Validate checks the preconditions of Build.
func (p Params) Validate() error {
	switch {
	case !finite(p.FOV, p.NearWidth, p.NearHeight, p.NearZ, p.FarZ, p.Aspect):
		return fmt.Errorf("%w: non-finite field in %+v", ErrInvalidParams, p)
	case p.NearZ <= 0:
		return fmt.Errorf("%w: nearZ %v must be positive", ErrInvalidParams, p.NearZ)
	case p.NearZ >= p.FarZ:
		return fmt.Errorf("%w: nearZ %v must be less than farZ %v", ErrInvalidParams, p.NearZ, p.FarZ)
	case p.Aspect <= 0:
		return fmt.Errorf("%w: aspect %v must be positive", ErrInvalidParams, p.Aspect)
	}
	switch p.Projection {
	case Perspective:
		if p.FOV <= 0 || p.FOV >= math32.Pi {
			return fmt.Errorf("%w: fov %v must be in (0, pi)", ErrInvalidParams, p.FOV)
		}
	case Ortho:
		if p.NearWidth <= 0 || p.NearHeight <= 0 {
			return fmt.Errorf("%w: near extents %vx%v must be positive", ErrInvalidParams, p.NearWidth, p.NearHeight)
		}
	default:
		return fmt.Errorf("%w: unknown projection %v", ErrInvalidParams, p.Projection)
	}
	switch p.Handedness {
	case LeftHanded, RightHanded:
	default:
		return fmt.Errorf("%w: unknown handedness %v", ErrInvalidParams, p.Handedness)
	}
	return nil
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Frustum is an immutable projection description. The zero value is not usable;
// get one from Build, NewPerspective or NewOrtho.
type Frustum struct {
	params     Params
	projection math32.Matrix4
}

// Build derives the projection matrix from p. It panics when p fails Validate:
// callers are expected to validate untrusted parameters first.
func Build(p Params) Frustum {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return Frustum{params: p, projection: projectionMatrix(p)}
}

// NewPerspective builds a perspective frustum from a vertical fov in radians.
func NewPerspective(h Handedness, fov, nearZ, farZ, aspect float32) Frustum {
	return Build(Params{
		Projection: Perspective,
		Handedness: h,
		FOV:        fov,
		NearZ:      nearZ,
		FarZ:       farZ,
		Aspect:     aspect,
	})
}

// NewOrtho builds an orthographic frustum from the near plane extents.
// The aspect ratio is taken from the extents.
func NewOrtho(h Handedness, nearWidth, nearHeight, nearZ, farZ float32) Frustum {
	return Build(Params{
		Projection: Ortho,
		Handedness: h,
		NearWidth:  nearWidth,
		NearHeight: nearHeight,
		NearZ:      nearZ,
		FarZ:       farZ,
		Aspect:     nearWidth / nearHeight,
	})
}

// Params returns the parameters the frustum was built from.
func (f Frustum) Params() Params { return f.params }

func (f Frustum) Projection() Projection { return f.params.Projection }
func (f Frustum) Handedness() Handedness { return f.params.Handedness }
func (f Frustum) FOV() float32           { return f.params.FOV }
func (f Frustum) NearWidth() float32     { return f.params.NearWidth }
func (f Frustum) NearHeight() float32    { return f.params.NearHeight }
func (f Frustum) NearZ() float32         { return f.params.NearZ }
func (f Frustum) FarZ() float32          { return f.params.FarZ }
func (f Frustum) Aspect() float32        { return f.params.Aspect }
func (f Frustum) IsOrtho() bool          { return f.params.Projection == Ortho }

// Matrix returns the projection matrix.
func (f Frustum) Matrix() math32.Matrix4 { return f.projection }

// IsZero reports whether f is the unusable zero value.
func (f Frustum) IsZero() bool { return f.params == (Params{}) }

func (f Frustum) String() string {
	return fmt.Sprintf("%v/%v", f.params.Projection, f.params.Handedness)
}

// HorizontalFOV is the horizontal field of view for a perspective frustum.
func (f Frustum) HorizontalFOV() float32 {
	return 2 * math32.Atan(math32.Tan(f.params.FOV*0.5)*f.params.Aspect)
}

// WithAspect returns a copy with a new aspect ratio. For ortho frusta the near
// width follows the height so the extents keep matching the ratio.
func (f Frustum) WithAspect(aspect float32) Frustum {
	p := f.params
	p.Aspect = aspect
	if p.Projection == Ortho {
		p.NearWidth = p.NearHeight * aspect
	}
	return Build(p)
}

// WithFOV returns a copy with a new vertical field of view.
func (f Frustum) WithFOV(fov float32) Frustum {
	p := f.params
	p.FOV = fov
	return Build(p)
}

// WithNearExtents returns a copy with new ortho near extents.
func (f Frustum) WithNearExtents(width, height float32) Frustum {
	p := f.params
	p.NearWidth, p.NearHeight = width, height
	p.Aspect = width / height
	return Build(p)
}

// WithDepth returns a copy with new near and far distances.
func (f Frustum) WithDepth(nearZ, farZ float32) Frustum {
	p := f.params
	p.NearZ, p.FarZ = nearZ, farZ
	return Build(p)
}

// projectionMatrix maps camera space to clip space with depth in [0, 1].
// Left-handed cameras look down +Z, right-handed ones down -Z.
func projectionMatrix(p Params) math32.Matrix4 {
	var m math32.Matrix4
	zn, zf := p.NearZ, p.FarZ

	switch p.Projection {
	case Perspective:
		yScale := 1 / math32.Tan(p.FOV*0.5)
		xScale := yScale / p.Aspect
		m[0] = xScale
		m[5] = yScale
		if p.Handedness == LeftHanded {
			m[10] = zf / (zf - zn)
			m[11] = 1
			m[14] = -zn * zf / (zf - zn)
		} else {
			m[10] = zf / (zn - zf)
			m[11] = -1
			m[14] = zn * zf / (zn - zf)
		}
	case Ortho:
		m[0] = 2 / p.NearWidth
		m[5] = 2 / p.NearHeight
		if p.Handedness == LeftHanded {
			m[10] = 1 / (zf - zn)
			m[14] = zn / (zn - zf)
		} else {
			m[10] = 1 / (zn - zf)
			m[14] = zn / (zn - zf)
		}
		m[15] = 1
	}
	return m
}
