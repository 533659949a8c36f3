package camera

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OCAP2/portalview/internal/frustum"
	"github.com/OCAP2/portalview/internal/parser"
	"github.com/OCAP2/portalview/pkg/core"
)

var (
	// ErrNotFound is returned when no camera has the requested id.
	ErrNotFound = errors.New("camera not found")
	// ErrExists is returned when creating a camera with an id already in use.
	ErrExists = errors.New("camera already exists")
)

// Repository owns the cameras of a view service, indexed by id.
type Repository struct {
	mu        sync.RWMutex
	cameras   map[core.ID]*Camera
	parser    *parser.Parser
	publisher core.Publisher
}

// NewRepository creates an empty repository. Cameras it creates publish through publisher.
func NewRepository(p *parser.Parser, publisher core.Publisher) *Repository {
	if publisher == nil {
		publisher = core.NopPublisher
	}
	return &Repository{
		cameras:   make(map[core.ID]*Camera),
		parser:    p,
		publisher: publisher,
	}
}

// Create adds a fresh camera.
func (r *Repository) Create(id core.ID, h frustum.Handedness) (*Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cameras[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	c := New(id, h, r.publisher)
	r.cameras[id] = c
	r.publisher.Publish(core.TopicCameraCreated, core.CameraCreated{CameraID: id})
	return c, nil
}

// Constitute rebuilds a camera from a persisted description, replacing any camera
// with the same id. Nothing is stored when the description is invalid.
func (r *Repository) Constitute(id core.ID, d core.Description) (*Camera, error) {
	spec, err := r.parser.ParseCamera(d)
	if err != nil {
		return nil, fmt.Errorf("constitute camera %s: %w", id, err)
	}

	c := New(id, spec.Handedness, core.NopPublisher)
	if err := c.SetFrame(spec.Eye, spec.Direction, spec.Up); err != nil {
		return nil, fmt.Errorf("constitute camera %s: %w", id, err)
	}
	if spec.Frustum != nil {
		if err := c.SetFrustum(frustum.Build(*spec.Frustum)); err != nil {
			return nil, fmt.Errorf("constitute camera %s: %w", id, err)
		}
	}
	// start publishing only once the camera is fully assembled
	c.publisher = r.publisher

	r.mu.Lock()
	r.cameras[id] = c
	r.mu.Unlock()

	r.publisher.Publish(core.TopicCameraCreated, core.CameraCreated{CameraID: id})
	return c, nil
}

// Find returns the camera with the given id.
func (r *Repository) Find(id core.ID) (*Camera, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cameras[id]
	return c, ok
}

// Remove destroys the camera. It reports whether the camera existed.
func (r *Repository) Remove(id core.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cameras[id]
	delete(r.cameras, id)
	return ok
}

// Len returns the number of cameras.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cameras)
}

// Describe serializes a camera back into a description.
func (r *Repository) Describe(id core.ID) (core.Description, error) {
	c, ok := r.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	spec := parser.CameraSpec{
		Handedness: c.handedness,
		Eye:        c.location,
		Direction:  c.lookAt.Sub(c.location),
		Up:         c.up,
	}
	if c.hasFrustum {
		params := c.frustum.Params()
		spec.Frustum = &params
	}
	return parser.DescribeCamera(spec), nil
}
