// Package parser converts persisted key/value descriptions into typed specs and back.
// It has zero dependencies on the scene graph: the scene and camera packages decide
// what to build from a spec.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/geo"
	"github.com/OCAP2/portalview/internal/util"
	"github.com/OCAP2/portalview/pkg/core"
)

// ErrMissingKey is returned when a required description key is absent.
var ErrMissingKey = errors.New("missing description key")

// Description keys.
const (
	KeyPosition     = "position"
	KeyCull         = "cull"
	KeyMin          = "min"
	KeyMax          = "max"
	KeyQuad         = "quad"
	KeyZone         = "zone"
	KeyOpen         = "open"
	KeyParentPortal = "parentPortal"
	KeyOutside      = "outside"

	KeyHandedness = "handedness"
	KeyEye        = "eye"
	KeyDirection  = "direction"
	KeyUp         = "up"
	KeyProjection = "projection"
	KeyFOV        = "fov"
	KeyNearWidth  = "nearWidth"
	KeyNearHeight = "nearHeight"
	KeyNearZ      = "nearZ"
	KeyFarZ       = "farZ"
	KeyAspect     = "aspect"
)

// Parser turns descriptions into the typed NodeSpec, PortalSpec and CameraSpec values.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func required(d core.Description, key string) (string, error) {
	v, ok := d.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	return util.CleanValue(v), nil
}

func optionalVector(d core.Description, key string, def math32.Vector3) (math32.Vector3, error) {
	v, ok := d.Get(key)
	if !ok {
		return def, nil
	}
	out, err := geo.Vector3FromString(util.CleanValue(v))
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

func requiredVector(d core.Description, key string) (math32.Vector3, error) {
	v, err := required(d, key)
	if err != nil {
		return math32.Vector3{}, err
	}
	out, err := geo.Vector3FromString(v)
	if err != nil {
		return math32.Vector3{}, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}

func optionalFloat(d core.Description, key string) (float32, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false, nil
	}
	f, err := util.ParseFloat32(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return f, true, nil
}

func optionalBool(d core.Description, key string, def bool) (bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(util.CleanValue(v))
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func bound(d core.Description) (math32.Box3, error) {
	min, err := required(d, KeyMin)
	if err != nil {
		return math32.Box3{}, err
	}
	max, err := required(d, KeyMax)
	if err != nil {
		return math32.Box3{}, err
	}
	return geo.BoxFromStrings(min, max)
}
