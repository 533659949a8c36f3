package geo

import (
	"fmt"

	"cogentcore.org/core/math32"
	geom "github.com/peterstace/simplefeatures/geom"
)

// BoxWKT stores a bound as the WKT "LINESTRING Z" from its min to its max corner.
// An empty bound becomes "LINESTRING Z EMPTY".
func BoxWKT(b math32.Box3) string {
	if b.IsEmpty() {
		return geom.NewLineString(geom.NewSequence(nil, geom.DimXYZ)).AsText()
	}
	flat := []float64{
		float64(b.Min.X), float64(b.Min.Y), float64(b.Min.Z),
		float64(b.Max.X), float64(b.Max.Y), float64(b.Max.Z),
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ)).AsText()
}

// ParseBoxWKT is the inverse of BoxWKT. The corners may come in any order.
func ParseBoxWKT(wkt string) (math32.Box3, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return math32.Box3{}, fmt.Errorf("failed to parse box WKT: %w", err)
	}
	if g.Type() != geom.TypeLineString {
		return math32.Box3{}, fmt.Errorf("box must be a LINESTRING, got %s", g.Type())
	}

	ls, _ := g.AsLineString()
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return math32.B3Empty(), nil
	}
	if seq.CoordinatesType() != geom.DimXYZ {
		return math32.Box3{}, fmt.Errorf("box must have XYZ coordinates, got %s", seq.CoordinatesType())
	}
	if seq.Length() != 2 {
		return math32.Box3{}, fmt.Errorf("box must have 2 corners, got %d", seq.Length())
	}

	b := math32.B3Empty()
	for i := 0; i < 2; i++ {
		c := seq.Get(i)
		b.ExpandByPoint(math32.Vec3(float32(c.XY.X), float32(c.XY.Y), float32(c.Z)))
	}
	return b, nil
}
