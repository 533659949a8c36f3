// Package handlers maps control commands onto camera and scene operations.
// Every handler is synchronous: commands must be dispatched from the goroutine
// that runs frames.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/camera"
	"github.com/OCAP2/portalview/internal/culler"
	"github.com/OCAP2/portalview/internal/dispatcher"
	"github.com/OCAP2/portalview/internal/frustum"
	"github.com/OCAP2/portalview/internal/geo"
	"github.com/OCAP2/portalview/internal/parser"
	"github.com/OCAP2/portalview/internal/scene"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/internal/util"
	"github.com/OCAP2/portalview/pkg/core"
)

// Commands registered by RegisterHandlers.
const (
	CmdCameraCreate      = ":CAMERA:CREATE:"
	CmdCameraPerspective = ":CAMERA:PERSPECTIVE:"
	CmdCameraOrtho       = ":CAMERA:ORTHO:"
	CmdCameraFrame       = ":CAMERA:FRAME:"
	CmdCameraMove        = ":CAMERA:MOVE:"
	CmdCameraRotate      = ":CAMERA:ROTATE:"
	CmdCameraZoom        = ":CAMERA:ZOOM:"
	CmdCameraBind        = ":CAMERA:BIND:"
	CmdCameraSave        = ":CAMERA:SAVE:"
	CmdCameraLoad        = ":CAMERA:LOAD:"
	CmdPortalOpen        = ":PORTAL:OPEN:"
	CmdPortalClose       = ":PORTAL:CLOSE:"
	CmdSpatialMove       = ":SPATIAL:MOVE:"
	CmdZoneRetry         = ":ZONE:RETRY:"
)

var (
	// ErrArgs is returned when a command has too few or malformed arguments.
	ErrArgs = errors.New("bad command arguments")
	// ErrNoCameraStore is returned by camera persistence without a CameraStore.
	ErrNoCameraStore = errors.New("storage backend does not persist cameras")
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Graph       *scene.Graph
	Culler      *culler.Culler
	Cameras     *camera.Repository
	CameraStore storage.CameraStore
	Logger      *slog.Logger
}

// Service provides handler methods for the control commands
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// RegisterHandlers registers every command with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdCameraCreate, s.handleCameraCreate, dispatcher.Logged())
	d.Register(CmdCameraPerspective, s.handleCameraPerspective, dispatcher.Logged())
	d.Register(CmdCameraOrtho, s.handleCameraOrtho, dispatcher.Logged())
	d.Register(CmdCameraFrame, s.handleCameraFrame, dispatcher.Logged())
	d.Register(CmdCameraMove, s.handleCameraMove)
	d.Register(CmdCameraRotate, s.handleCameraRotate)
	d.Register(CmdCameraZoom, s.handleCameraZoom)
	d.Register(CmdCameraBind, s.handleCameraBind, dispatcher.Logged())
	d.Register(CmdCameraSave, s.handleCameraSave, dispatcher.Logged())
	d.Register(CmdCameraLoad, s.handleCameraLoad, dispatcher.Logged())

	d.Register(CmdPortalOpen, s.handlePortal(true), dispatcher.Logged())
	d.Register(CmdPortalClose, s.handlePortal(false), dispatcher.Logged())
	d.Register(CmdSpatialMove, s.handleSpatialMove)
	d.Register(CmdZoneRetry, s.handleZoneRetry, dispatcher.Logged())
}

// args cleans the raw arguments and checks there are at least n.
func args(e dispatcher.Event, n int) ([]string, error) {
	if len(e.Args) < n {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrArgs, e.Command, n, len(e.Args))
	}
	out := make([]string, len(e.Args))
	for i, a := range e.Args {
		out[i] = util.CleanValue(a)
	}
	return out, nil
}

func floats(e dispatcher.Event, raw []string) ([]float32, error) {
	out := make([]float32, len(raw))
	for i, r := range raw {
		f, err := util.ParseFloat32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s arg %q: %v", ErrArgs, e.Command, r, err)
		}
		out[i] = f
	}
	return out, nil
}

func vectors(e dispatcher.Event, raw []string) ([]math32.Vector3, error) {
	out := make([]math32.Vector3, len(raw))
	for i, r := range raw {
		v, err := geo.Vector3FromString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s arg %q: %v", ErrArgs, e.Command, r, err)
		}
		out[i] = v
	}
	return out, nil
}

func (s *Service) camera(id string) (*camera.Camera, error) {
	c, ok := s.deps.Cameras.Find(core.ID(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", camera.ErrNotFound, id)
	}
	return c, nil
}

// handleCameraCreate: id [handedness]
func (s *Service) handleCameraCreate(e dispatcher.Event) (any, error) {
	a, err := args(e, 1)
	if err != nil {
		return nil, err
	}
	h := frustum.LeftHanded
	if len(a) > 1 {
		if h, err = parser.ParseHandedness(a[1]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArgs, err)
		}
	}
	if _, err := s.deps.Cameras.Create(core.ID(a[0]), h); err != nil {
		return nil, err
	}
	return a[0], nil
}

// handleCameraPerspective: id fovDegrees near far aspect
func (s *Service) handleCameraPerspective(e dispatcher.Event) (any, error) {
	a, err := args(e, 5)
	if err != nil {
		return nil, err
	}
	c, err := s.camera(a[0])
	if err != nil {
		return nil, err
	}
	f, err := floats(e, a[1:5])
	if err != nil {
		return nil, err
	}
	p := frustum.Params{
		Projection: frustum.Perspective,
		Handedness: c.Handedness(),
		FOV:        math32.DegToRad(f[0]),
		NearZ:      f[1],
		FarZ:       f[2],
		Aspect:     f[3],
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgs, err)
	}
	return nil, s.setFrustum(c, frustum.Build(p))
}

// handleCameraOrtho: id nearWidth nearHeight near far
func (s *Service) handleCameraOrtho(e dispatcher.Event) (any, error) {
	a, err := args(e, 5)
	if err != nil {
		return nil, err
	}
	c, err := s.camera(a[0])
	if err != nil {
		return nil, err
	}
	f, err := floats(e, a[1:5])
	if err != nil {
		return nil, err
	}
	p := frustum.Params{
		Projection: frustum.Ortho,
		Handedness: c.Handedness(),
		NearWidth:  f[0],
		NearHeight: f[1],
		NearZ:      f[2],
		FarZ:       f[3],
	}
	if f[1] > 0 {
		p.Aspect = f[0] / f[1]
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArgs, err)
	}
	return nil, s.setFrustum(c, frustum.Build(p))
}

func (s *Service) setFrustum(c *camera.Camera, f frustum.Frustum) error {
	if err := c.SetFrustum(f); err != nil {
		return err
	}
	s.refresh(c)
	return nil
}

// refresh rederives the culler planes when c is the bound camera.
func (s *Service) refresh(c *camera.Camera) {
	if s.deps.Culler != nil && s.deps.Culler.Camera() == c {
		_ = s.deps.Culler.UpdateFrustumPlanes()
	}
}

// handleCameraFrame: id eye direction [up]
func (s *Service) handleCameraFrame(e dispatcher.Event) (any, error) {
	a, err := args(e, 3)
	if err != nil {
		return nil, err
	}
	c, err := s.camera(a[0])
	if err != nil {
		return nil, err
	}
	raw := a[1:3]
	if len(a) > 3 {
		raw = a[1:4]
	}
	v, err := vectors(e, raw)
	if err != nil {
		return nil, err
	}
	up := math32.Vec3(0, 1, 0)
	if len(v) > 2 {
		up = v[2]
	}
	if err := c.SetFrame(v[0], v[1], up); err != nil {
		return nil, err
	}
	s.refresh(c)
	return nil, nil
}

// handleCameraMove: id forward right [up]. Without up the move stays level.
func (s *Service) handleCameraMove(e dispatcher.Event) (any, error) {
	a, err := args(e, 3)
	if err != nil {
		return nil, err
	}
	c, err := s.camera(a[0])
	if err != nil {
		return nil, err
	}
	f, err := floats(e, a[1:])
	if err != nil {
		return nil, err
	}
	if len(f) > 2 {
		err = c.Move(f[0], f[1], f[2])
	} else {
		err = c.MoveXZ(f[0], f[1])
	}
	if err != nil {
		return nil, err
	}
	s.refresh(c)
	return nil, nil
}

// handleCameraRotate: id yawDegrees pitchDegrees
func (s *Service) handleCameraRotate(e dispatcher.Event) (any, error) {
	a, err := args(e, 3)
	if err != nil {
		return nil, err
	}
	c, err := s.camera(a[0])
	if err != nil {
		return nil, err
	}
	f, err := floats(e, a[1:3])
	if err != nil {
		return nil, err
	}
	if err := c.SphereRotate(math32.DegToRad(f[0]), math32.DegToRad(f[1])); err != nil {
		return nil, err
	}
	s.refresh(c)
	return nil, nil
}

// handleCameraZoom: id factor
func (s *Service) handleCameraZoom(e dispatcher.Event) (any, error) {
	a, err := args(e, 2)
	if err != nil {
		return nil, err
	}
	c, err := s.camera(a[0])
	if err != nil {
		return nil, err
	}
	f, err := floats(e, a[1:2])
	if err != nil {
		return nil, err
	}
	if err := c.Zoom(f[0]); err != nil {
		return nil, err
	}
	s.refresh(c)
	return nil, nil
}

// handleCameraBind: id
func (s *Service) handleCameraBind(e dispatcher.Event) (any, error) {
	a, err := args(e, 1)
	if err != nil {
		return nil, err
	}
	c, err := s.camera(a[0])
	if err != nil {
		return nil, err
	}
	s.deps.Culler.SetCamera(c)
	return nil, nil
}

// handleCameraSave: id
func (s *Service) handleCameraSave(e dispatcher.Event) (any, error) {
	a, err := args(e, 1)
	if err != nil {
		return nil, err
	}
	if s.deps.CameraStore == nil {
		return nil, ErrNoCameraStore
	}
	d, err := s.deps.Cameras.Describe(core.ID(a[0]))
	if err != nil {
		return nil, err
	}
	return nil, s.deps.CameraStore.SaveCamera(context.Background(), core.ID(a[0]), d)
}

// handleCameraLoad constitutes every stored camera and returns how many loaded.
// Invalid descriptions are logged and skipped.
func (s *Service) handleCameraLoad(dispatcher.Event) (any, error) {
	if s.deps.CameraStore == nil {
		return nil, ErrNoCameraStore
	}
	stored, err := s.deps.CameraStore.Cameras(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading cameras: %w", err)
	}
	loaded := 0
	for id, d := range stored {
		c, err := s.deps.Cameras.Constitute(id, d)
		if err != nil {
			s.deps.Logger.Warn("Skipping stored camera", "cameraId", id, "error", err)
			continue
		}
		s.refresh(c)
		loaded++
	}
	return loaded, nil
}

func (s *Service) handlePortal(open bool) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		a, err := args(e, 1)
		if err != nil {
			return nil, err
		}
		return nil, s.deps.Graph.SetPortalOpen(core.ID(a[0]), open)
	}
}

// handleSpatialMove: id position
func (s *Service) handleSpatialMove(e dispatcher.Event) (any, error) {
	a, err := args(e, 2)
	if err != nil {
		return nil, err
	}
	v, err := vectors(e, a[1:2])
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Graph.SetLocalPosition(core.ID(a[0]), v[0])
}

// handleZoneRetry: id
func (s *Service) handleZoneRetry(e dispatcher.Event) (any, error) {
	a, err := args(e, 1)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Graph.Retry(core.ID(a[0]))
}
