// Package geo converts between the textual forms used in persisted descriptions
// (comma separated vectors, WKT rings) and math32 values.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/util"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Vector3FromString parses "x,y,z" into a vector. A missing z is taken as 0 so
// two component ground positions are accepted.
func Vector3FromString(coords string) (math32.Vector3, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return math32.Vector3{}, ErrInvalidCoordinates
	}
	var xyz [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return math32.Vector3{}, ErrInvalidCoordinates
		}
		xyz[i] = float32(f)
	}
	return math32.Vec3(xyz[0], xyz[1], xyz[2]), nil
}

// FormatVector3 is the inverse of Vector3FromString.
func FormatVector3(v math32.Vector3) string {
	return util.FormatFloat32(v.X) + "," + util.FormatFloat32(v.Y) + "," + util.FormatFloat32(v.Z)
}

// BoxFromStrings parses the two corners of an axis aligned box. The corners may be
// given in any order.
func BoxFromStrings(min, max string) (math32.Box3, error) {
	a, err := Vector3FromString(min)
	if err != nil {
		return math32.Box3{}, fmt.Errorf("box min: %w", err)
	}
	b, err := Vector3FromString(max)
	if err != nil {
		return math32.Box3{}, fmt.Errorf("box max: %w", err)
	}
	box := math32.B3Empty()
	box.ExpandByPoint(a)
	box.ExpandByPoint(b)
	return box, nil
}
