package geo

import (
	"fmt"

	"cogentcore.org/core/math32"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParseQuad parses a portal outline stored as a WKT "LINESTRING Z" of four
// vertices, optionally closed by repeating the first one. The ring order is kept:
// it decides which way the portal faces.
func ParseQuad(wkt string) ([4]math32.Vector3, error) {
	var quad [4]math32.Vector3

	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return quad, fmt.Errorf("failed to parse quad WKT: %w", err)
	}
	if g.Type() != geom.TypeLineString {
		return quad, fmt.Errorf("quad must be a LINESTRING, got %s", g.Type())
	}

	ls, _ := g.AsLineString()
	seq := ls.Coordinates()
	if seq.CoordinatesType() != geom.DimXYZ {
		return quad, fmt.Errorf("quad must have XYZ coordinates, got %s", seq.CoordinatesType())
	}

	n := seq.Length()
	if n == 5 && seq.Get(0).XY == seq.Get(4).XY && seq.Get(0).Z == seq.Get(4).Z {
		n = 4
	}
	if n != 4 {
		return quad, fmt.Errorf("quad must have 4 vertices, got %d", n)
	}

	for i := 0; i < 4; i++ {
		c := seq.Get(i)
		quad[i] = math32.Vec3(float32(c.XY.X), float32(c.XY.Y), float32(c.Z))
	}
	return quad, nil
}

// QuadWKT renders a quad as a closed WKT "LINESTRING Z".
func QuadWKT(quad [4]math32.Vector3) string {
	flat := make([]float64, 0, 15)
	for i := 0; i <= 4; i++ {
		v := quad[i%4]
		flat = append(flat, float64(v.X), float64(v.Y), float64(v.Z))
	}
	seq := geom.NewSequence(flat, geom.DimXYZ)
	return geom.NewLineString(seq).AsText()
}
