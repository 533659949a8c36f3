package parser

import (
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/frustum"
	"github.com/OCAP2/portalview/internal/geo"
	"github.com/OCAP2/portalview/internal/util"
	"github.com/OCAP2/portalview/pkg/core"
)

// CameraSpec is a persisted camera. Frustum is nil when the description carries no
// projection, in which case the camera is constituted without one.
type CameraSpec struct {
	Handedness frustum.Handedness
	Eye        math32.Vector3
	Direction  math32.Vector3
	Up         math32.Vector3
	Frustum    *frustum.Params
}

// ParseHandedness accepts "left" or "right".
func ParseHandedness(s string) (frustum.Handedness, error) {
	switch util.CleanValue(s) {
	case "left", "":
		return frustum.LeftHanded, nil
	case "right":
		return frustum.RightHanded, nil
	default:
		return 0, fmt.Errorf("unknown handedness %q", s)
	}
}

// ParseProjection accepts "perspective" or "ortho".
func ParseProjection(s string) (frustum.Projection, error) {
	switch util.CleanValue(s) {
	case "perspective":
		return frustum.Perspective, nil
	case "ortho":
		return frustum.Ortho, nil
	default:
		return 0, fmt.Errorf("unknown projection %q", s)
	}
}

// ParseCamera parses a camera description. The fov is stored in degrees.
func (p *Parser) ParseCamera(d core.Description) (CameraSpec, error) {
	var spec CameraSpec
	var err error

	h, _ := d.Get(KeyHandedness)
	if spec.Handedness, err = ParseHandedness(h); err != nil {
		return spec, fmt.Errorf("error parsing camera: %w", err)
	}

	defaultDir := math32.Vec3(0, 0, 1)
	if spec.Handedness == frustum.RightHanded {
		defaultDir = math32.Vec3(0, 0, -1)
	}
	if spec.Eye, err = optionalVector(d, KeyEye, math32.Vector3{}); err != nil {
		return spec, fmt.Errorf("error parsing camera: %w", err)
	}
	if spec.Direction, err = optionalVector(d, KeyDirection, defaultDir); err != nil {
		return spec, fmt.Errorf("error parsing camera: %w", err)
	}
	if spec.Up, err = optionalVector(d, KeyUp, math32.Vec3(0, 1, 0)); err != nil {
		return spec, fmt.Errorf("error parsing camera: %w", err)
	}

	proj, ok := d.Get(KeyProjection)
	if !ok {
		return spec, nil
	}
	params := frustum.Params{Handedness: spec.Handedness}
	if params.Projection, err = ParseProjection(proj); err != nil {
		return spec, fmt.Errorf("error parsing camera: %w", err)
	}

	fields := []struct {
		key string
		dst *float32
	}{
		{KeyNearWidth, &params.NearWidth},
		{KeyNearHeight, &params.NearHeight},
		{KeyNearZ, &params.NearZ},
		{KeyFarZ, &params.FarZ},
		{KeyAspect, &params.Aspect},
	}
	for _, f := range fields {
		v, _, err := optionalFloat(d, f.key)
		if err != nil {
			return spec, fmt.Errorf("error parsing camera: %w", err)
		}
		*f.dst = v
	}

	fov, _, err := optionalFloat(d, KeyFOV)
	if err != nil {
		return spec, fmt.Errorf("error parsing camera: %w", err)
	}
	params.FOV = math32.DegToRad(fov)

	if params.Projection == frustum.Ortho && params.Aspect == 0 && params.NearHeight > 0 {
		params.Aspect = params.NearWidth / params.NearHeight
	}
	if err := params.Validate(); err != nil {
		return spec, fmt.Errorf("error parsing camera: %w", err)
	}
	spec.Frustum = &params

	p.logger.Debug("Parsed camera",
		"handedness", spec.Handedness,
		"projection", params.Projection)
	return spec, nil
}

// DescribeCamera is the inverse of ParseCamera.
func DescribeCamera(spec CameraSpec) core.Description {
	d := core.Description{
		KeyHandedness: spec.Handedness.String(),
		KeyEye:        geo.FormatVector3(spec.Eye),
		KeyDirection:  geo.FormatVector3(spec.Direction),
		KeyUp:         geo.FormatVector3(spec.Up),
	}
	if spec.Frustum == nil {
		return d
	}
	f := spec.Frustum
	d[KeyProjection] = f.Projection.String()
	d[KeyNearZ] = util.FormatFloat32(f.NearZ)
	d[KeyFarZ] = util.FormatFloat32(f.FarZ)
	d[KeyAspect] = util.FormatFloat32(f.Aspect)
	if f.Projection == frustum.Ortho {
		d[KeyNearWidth] = util.FormatFloat32(f.NearWidth)
		d[KeyNearHeight] = util.FormatFloat32(f.NearHeight)
	} else {
		d[KeyFOV] = util.FormatFloat32(math32.RadToDeg(f.FOV))
	}
	return d
}
