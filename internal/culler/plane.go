package culler

import (
	"fmt"

	"cogentcore.org/core/math32"
)

// Side is the result of classifying a volume against a plane.
type Side int

const (
	// Negative: entirely outside.
	Negative Side = iota
	// Positive: entirely inside.
	Positive
	// Straddling: crosses the plane.
	Straddling
)

func (s Side) String() string {
	switch s {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	case Straddling:
		return "straddling"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Plane is the set of points p with Normal·p = Constant. The half-space the
// normal points into is the inside.
type Plane struct {
	Normal   math32.Vector3
	Constant float32
}

// NewPlane builds a plane through point with the given normal. The normal is normalized.
func NewPlane(normal, point math32.Vector3) Plane {
	n := normal.Normal()
	return Plane{Normal: n, Constant: n.Dot(point)}
}

// PlaneFromPoints builds the plane through a, b and c, oriented so inside lies on
// its positive side. It reports false for collinear points or when inside lies on
// the plane.
func PlaneFromPoints(a, b, c, inside math32.Vector3) (Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Length() < 1e-8 {
		return Plane{}, false
	}
	p := NewPlane(n, a)
	d := p.Distance(inside)
	if math32.Abs(d) < 1e-6 {
		return Plane{}, false
	}
	if d < 0 {
		p = p.Flip()
	}
	return p, true
}

// Distance is the signed distance from pt to the plane, positive inside.
func (p Plane) Distance(pt math32.Vector3) float32 {
	return p.Normal.Dot(pt) - p.Constant
}

// Flip swaps inside and outside.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.MulScalar(-1), Constant: -p.Constant}
}

// Classify places an axis aligned box relative to the plane. A box touching the
// plane from the inside is Positive; only a box strictly outside is Negative.
func (p Plane) Classify(b math32.Box3) Side {
	center := b.Center()
	half := b.Size().MulScalar(0.5)
	r := half.X*math32.Abs(p.Normal.X) + half.Y*math32.Abs(p.Normal.Y) + half.Z*math32.Abs(p.Normal.Z)
	d := p.Distance(center)
	switch {
	case d+r < 0:
		return Negative
	case d-r >= 0:
		return Positive
	default:
		return Straddling
	}
}
