package frustum

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project returns the clip-space depth z/w of a camera-space point.
func project(f Frustum, p math32.Vector3) float32 {
	m := f.Matrix()
	v := math32.Vector4{X: p.X, Y: p.Y, Z: p.Z, W: 1}.MulMatrix4(&m)
	return v.Z / v.W
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"perspective ok", Params{Projection: Perspective, FOV: 1, NearZ: 0.1, FarZ: 100, Aspect: 1}, false},
		{"ortho ok", Params{Projection: Ortho, NearWidth: 2, NearHeight: 1, NearZ: 0.1, FarZ: 100, Aspect: 2}, false},
		{"near not positive", Params{Projection: Perspective, FOV: 1, NearZ: 0, FarZ: 100, Aspect: 1}, true},
		{"near beyond far", Params{Projection: Perspective, FOV: 1, NearZ: 10, FarZ: 5, Aspect: 1}, true},
		{"fov zero", Params{Projection: Perspective, FOV: 0, NearZ: 0.1, FarZ: 100, Aspect: 1}, true},
		{"fov too wide", Params{Projection: Perspective, FOV: math32.Pi, NearZ: 0.1, FarZ: 100, Aspect: 1}, true},
		{"ortho no extents", Params{Projection: Ortho, NearZ: 0.1, FarZ: 100, Aspect: 1}, true},
		{"aspect zero", Params{Projection: Perspective, FOV: 1, NearZ: 0.1, FarZ: 100}, true},
		{"fov nan", Params{Projection: Perspective, FOV: math32.NaN(), NearZ: 0.1, FarZ: 100, Aspect: 1}, true},
		{"far infinite", Params{Projection: Perspective, FOV: 1, NearZ: 0.1, FarZ: math32.Inf(1), Aspect: 1}, true},
		{"ortho extents nan", Params{Projection: Ortho, NearWidth: math32.NaN(), NearHeight: 1, NearZ: 0.1, FarZ: 100, Aspect: 1}, true},
		{"bad handedness", Params{Projection: Perspective, Handedness: 7, FOV: 1, NearZ: 0.1, FarZ: 100, Aspect: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidParams)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBuild_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		Build(Params{Projection: Perspective, FOV: 1, NearZ: 5, FarZ: 1, Aspect: 1})
	})
}

func TestPerspectiveLH_DepthRange(t *testing.T) {
	f := NewPerspective(LeftHanded, math32.Pi/2, 0.1, 100, 1)

	assert.InDelta(t, 0, project(f, math32.Vec3(0, 0, 0.1)), 1e-4)
	assert.InDelta(t, 1, project(f, math32.Vec3(0, 0, 100)), 1e-4)
}

func TestPerspectiveRH_DepthRange(t *testing.T) {
	f := NewPerspective(RightHanded, math32.Pi/2, 0.1, 100, 1)

	assert.InDelta(t, 0, project(f, math32.Vec3(0, 0, -0.1)), 1e-4)
	assert.InDelta(t, 1, project(f, math32.Vec3(0, 0, -100)), 1e-4)
}

func TestOrtho_DepthRange(t *testing.T) {
	lh := NewOrtho(LeftHanded, 4, 2, 1, 11)
	assert.InDelta(t, 0, project(lh, math32.Vec3(0, 0, 1)), 1e-5)
	assert.InDelta(t, 1, project(lh, math32.Vec3(0, 0, 11)), 1e-5)

	rh := NewOrtho(RightHanded, 4, 2, 1, 11)
	assert.InDelta(t, 0, project(rh, math32.Vec3(0, 0, -1)), 1e-5)
	assert.InDelta(t, 1, project(rh, math32.Vec3(0, 0, -11)), 1e-5)

	assert.InDelta(t, 2, lh.Aspect(), 1e-6)
	m := lh.Matrix()
	assert.InDelta(t, 0.5, m[0], 1e-6)
	assert.InDelta(t, 1, m[5], 1e-6)
}

func TestPerspective_Scales(t *testing.T) {
	f := NewPerspective(LeftHanded, math32.Pi/2, 0.1, 100, 2)
	m := f.Matrix()

	// cot(45deg) = 1
	assert.InDelta(t, 1, m[5], 1e-5)
	assert.InDelta(t, 0.5, m[0], 1e-5)
}

func TestWith_RecomputesProjection(t *testing.T) {
	f := NewPerspective(LeftHanded, math32.Pi/2, 0.1, 100, 1)
	g := f.WithAspect(2)

	assert.Equal(t, float32(1), f.Aspect(), "original is not mutated")
	assert.Equal(t, float32(2), g.Aspect())
	gm, fm := g.Matrix(), f.Matrix()
	assert.NotEqual(t, fm[0], gm[0])
	assert.Equal(t, projectionMatrix(g.Params()), g.Matrix())

	h := f.WithFOV(math32.Pi / 3)
	assert.Equal(t, projectionMatrix(h.Params()), h.Matrix())

	d := f.WithDepth(1, 10)
	assert.Equal(t, float32(1), d.NearZ())
	assert.Equal(t, float32(10), d.FarZ())
}

func TestWithAspect_OrthoKeepsHeight(t *testing.T) {
	f := NewOrtho(LeftHanded, 4, 2, 1, 10).WithAspect(3)

	assert.Equal(t, float32(2), f.NearHeight())
	assert.Equal(t, float32(6), f.NearWidth())
}

func TestHorizontalFOV(t *testing.T) {
	f := NewPerspective(LeftHanded, math32.Pi/2, 0.1, 100, 1)
	assert.InDelta(t, math32.Pi/2, f.HorizontalFOV(), 1e-5)

	wide := f.WithAspect(2)
	assert.InDelta(t, 2*math32.Atan(2), wide.HorizontalFOV(), 1e-5)
}

func TestIsZero(t *testing.T) {
	var f Frustum
	assert.True(t, f.IsZero())
	assert.False(t, NewPerspective(LeftHanded, 1, 0.1, 10, 1).IsZero())
}
