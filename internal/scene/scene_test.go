package scene

import (
	"errors"
	"sync"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/portalview/internal/camera"
	"github.com/OCAP2/portalview/internal/culler"
	"github.com/OCAP2/portalview/internal/frustum"
	"github.com/OCAP2/portalview/internal/lazy"
	"github.com/OCAP2/portalview/internal/parser"
	"github.com/OCAP2/portalview/pkg/core"
)

type event struct {
	topic   string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) Publish(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{topic, payload})
}

func (r *recorder) topic(topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

type requests struct {
	ids []core.ID
	err error
}

func (r *requests) RequestHydrate(id core.ID) error {
	r.ids = append(r.ids, id)
	return r.err
}

func (r *requests) count(id core.ID) int {
	n := 0
	for _, v := range r.ids {
		if v == id {
			n++
		}
	}
	return n
}

// Two rooms along +Z joined by a doorway at z=10:
//
//	A: x,z in [-10,10], B: x in [-10,10], z in [10,30], both 5 high.
type world struct {
	g   *Graph
	rec *recorder
	req *requests
	cam *camera.Camera
	c   *culler.Culler
}

func newWorld(t *testing.T, opts culler.Options) *world {
	t.Helper()
	w := &world{rec: &recorder{}, req: &requests{}}

	g, err := NewGraph(Options{Publisher: w.rec, Requester: w.req})
	require.NoError(t, err)
	w.g = g

	_, err = g.NewZone(core.ZoneSkeleton{ID: "a", Bound: math32.B3(-10, 0, -10, 10, 5, 10)})
	require.NoError(t, err)
	_, err = g.NewZone(core.ZoneSkeleton{ID: "b", Bound: math32.B3(-10, 0, 10, 10, 5, 30), ParentPortal: "p-ab"})
	require.NoError(t, err)

	w.cam = camera.New("cam", frustum.LeftHanded, nil)
	require.NoError(t, w.cam.SetFrustum(frustum.NewPerspective(frustum.LeftHanded, math32.DegToRad(90), 0.1, 100, 1)))
	w.look(t, math32.Vec3(0, 1, 0), math32.Vec3(0, 0, 1))
	w.c = culler.New(w.cam, opts)
	return w
}

func (w *world) look(t *testing.T, eye, dir math32.Vector3) {
	t.Helper()
	require.NoError(t, w.cam.SetFrame(eye, dir, math32.Vec3(0, 1, 0)))
}

func (w *world) hydrate(t *testing.T, zone core.ID, spatials ...core.SpatialDescription) {
	t.Helper()
	require.NoError(t, w.g.ApplyContent(core.ZoneContent{ZoneID: zone, Spatials: spatials}))
}

func (w *world) frame(t *testing.T) []core.ID {
	t.Helper()
	w.g.UpdateWorld()
	require.NoError(t, w.c.ComputeVisibleSet(w.g))
	var ids []core.ID
	for _, s := range w.c.VisibleSet() {
		ids = append(ids, s.SpatialID())
	}
	return ids
}

func object(id core.ID, x, y, z float32) core.SpatialDescription {
	return core.SpatialDescription{ID: id, Kind: core.KindObject, Description: parser.DescribeObject(parser.ObjectSpec{
		NodeSpec: parser.NodeSpec{Position: math32.Vec3(x, y, z)},
		Bound:    math32.B3(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5),
	})}
}

// doorway is a 2x2 quad at depth z whose normal points along +Z, or -Z when reversed.
func doorway(id, zone core.ID, z float32, reversed bool) core.SpatialDescription {
	quad := [4]math32.Vector3{
		math32.Vec3(-1, 0, z), math32.Vec3(1, 0, z),
		math32.Vec3(1, 2, z), math32.Vec3(-1, 2, z),
	}
	if reversed {
		quad[0], quad[1] = quad[1], quad[0]
		quad[2], quad[3] = quad[3], quad[2]
	}
	return core.SpatialDescription{ID: id, Kind: core.KindPortal, Description: parser.DescribePortal(parser.PortalSpec{
		Quad: quad,
		Zone: zone,
		Open: true,
	})}
}

func (w *world) readyRooms(t *testing.T) {
	t.Helper()
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, false))
	w.hydrate(t, "b", object("statue", 0, 1, 20))
}

func TestPortalGating(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)

	require.NoError(t, w.g.SetPortalOpen("p-ab", false))
	assert.Equal(t, []core.ID{"table"}, w.frame(t))

	require.NoError(t, w.g.SetPortalOpen("p-ab", true))
	assert.Equal(t, []core.ID{"table", "statue"}, w.frame(t))
}

func TestGhostZone(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, false))

	assert.Equal(t, []core.ID{"table"}, w.frame(t))
	assert.Equal(t, 1, w.req.count("b"))
	z, _ := w.g.Zone("b")
	assert.Equal(t, lazy.Loading, z.Status())

	// still loading: no second request
	assert.Equal(t, []core.ID{"table"}, w.frame(t))
	assert.Equal(t, 1, w.req.count("b"))

	w.hydrate(t, "b", object("statue", 0, 1, 20))
	assert.Equal(t, []core.ID{"table", "statue"}, w.frame(t))
	assert.Equal(t, 1, w.req.count("b"))
	assert.Len(t, w.rec.topic(core.TopicZoneHydrated), 2)
}

func TestGhostStartZone(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())

	assert.Empty(t, w.frame(t))
	assert.Equal(t, []core.ID{"a"}, w.req.ids)
	assert.Equal(t, core.ID("a"), w.g.Root().StartZone())
}

func TestCycleTerminates(t *testing.T) {
	w := newWorld(t, culler.Options{PortalNarrowing: true})
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, false))
	// faces away from A yet leads back into it
	w.hydrate(t, "b", object("statue", 0, 1, 20), doorway("p-ba", "a", 25, false))

	a, _ := w.g.Zone("a")
	b, _ := w.g.Zone("b")
	require.False(t, a.Visiting())
	require.False(t, b.Visiting())

	assert.Equal(t, []core.ID{"table", "statue"}, w.frame(t))
	assert.False(t, a.Visiting())
	assert.False(t, b.Visiting())

	// noCull skips every portal test, so only the re-entrancy flag stops the loop
	require.NoError(t, w.g.CullVisibleSet(w.c, true))
	assert.False(t, a.Visiting())
	assert.False(t, b.Visiting())
	assert.Equal(t, culler.BasePlanes, w.c.PlaneCount())
}

func TestRevertOnEnqueueFailure(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.req.err = errors.New("queue full")

	w.frame(t)
	a, _ := w.g.Zone("a")
	assert.Equal(t, lazy.Ghost, a.Status())

	w.req.err = nil
	w.frame(t)
	assert.Equal(t, 2, w.req.count("a"))
	assert.Equal(t, lazy.Loading, a.Status())
}

func TestFailedZone(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, false))
	w.frame(t)
	require.Equal(t, 1, w.req.count("b"))

	w.g.Post(core.HydrateResult{ZoneID: "b", Code: core.ErrorCodeContentMissing, Reason: "no content"})
	assert.Equal(t, 1, w.g.ApplyPending())

	b, _ := w.g.Zone("b")
	assert.Equal(t, lazy.Failed, b.Status())
	assert.Equal(t, core.ErrorCodeContentMissing, b.FailureCode())
	require.Len(t, w.rec.topic(core.TopicHydrationFailed), 1)
	assert.Equal(t, core.HydrationFailed{ZoneID: "b", Code: core.ErrorCodeContentMissing, Reason: "no content"},
		w.rec.topic(core.TopicHydrationFailed)[0])

	// failed zones render as empty space and are not retried by traversal
	assert.Equal(t, []core.ID{"table"}, w.frame(t))
	assert.Equal(t, 1, w.req.count("b"))

	require.NoError(t, w.g.Retry("b"))
	assert.Equal(t, 2, w.req.count("b"))
	assert.Equal(t, lazy.Loading, b.Status())
	assert.ErrorIs(t, w.g.Retry("b"), lazy.ErrInvalidTransition)
}

func TestRetry_EnqueueFailureRevertsToGhost(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.frame(t)
	require.NoError(t, w.g.FailHydration("a", core.ErrorCodeLoadFailed, "disk"))

	w.req.err = errors.New("queue full")
	assert.Error(t, w.g.Retry("a"))

	a, _ := w.g.Zone("a")
	assert.Equal(t, lazy.Ghost, a.Status())
}

func TestApplyPending_FromOtherGoroutines(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.frame(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.g.Post(core.HydrateResult{ZoneID: "a", Content: core.ZoneContent{
			Spatials: []core.SpatialDescription{object("table", 0, 0.5, 5)},
		}})
	}()
	wg.Wait()

	a, _ := w.g.Zone("a")
	assert.Equal(t, lazy.Loading, a.Status(), "nothing applied before ApplyPending")
	assert.Equal(t, 1, w.g.Pending())

	assert.Equal(t, 1, w.g.ApplyPending())
	assert.Equal(t, lazy.Ready, a.Status())
	assert.Equal(t, []core.ID{"table"}, w.frame(t))
}

func TestApplyPending_DropsUnknownZones(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.g.Post(core.HydrateResult{ZoneID: "nowhere"})
	assert.Equal(t, 0, w.g.ApplyPending())
	assert.Equal(t, 0, w.g.Pending())
}

func TestPortalFacingAway(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, true))

	assert.Equal(t, []core.ID{"table"}, w.frame(t))
	assert.Zero(t, w.req.count("b"), "a portal seen from behind does not lead anywhere")
}

func TestPortalFacing_UsesEyeSide(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, false))
	w.hydrate(t, "b", object("plinth", 6, 1, 12))

	// looking past the doorway with the view direction against its normal
	w.look(t, math32.Vec3(-5, 1, 9.5), math32.Vec3(1, 0, -0.3))
	assert.Equal(t, []core.ID{"table", "plinth"}, w.frame(t))
}

func TestPortalUnresolved(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-nowhere", "missing", 10, false))

	assert.Equal(t, []core.ID{"table"}, w.frame(t))

	failed := w.rec.topic(core.TopicPortalZoneAttachmentFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, core.ErrorCodeZoneNotFound, failed[0].(core.PortalZoneAttachmentFailed).Code)
}

func TestPortalAttachedEvent(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)

	attached := w.rec.topic(core.TopicPortalZoneAttached)
	require.Len(t, attached, 1)
	assert.Equal(t, core.PortalZoneAttached{PortalID: "p-ab", ZoneID: "b"}, attached[0])
}

func TestPortalNarrowing(t *testing.T) {
	wide := object("fountain", 8, 1, 20)

	plain := newWorld(t, culler.DefaultOptions())
	plain.hydrate(t, "a", doorway("p-ab", "b", 10, false))
	plain.hydrate(t, "b", object("statue", 0, 1, 20), wide)
	assert.Equal(t, []core.ID{"statue", "fountain"}, plain.frame(t))

	narrowed := newWorld(t, culler.Options{PortalNarrowing: true})
	narrowed.hydrate(t, "a", doorway("p-ab", "b", 10, false))
	narrowed.hydrate(t, "b", object("statue", 0, 1, 20), wide)
	assert.Equal(t, []core.ID{"statue"}, narrowed.frame(t), "only what shows through the doorway")
	assert.Equal(t, culler.BasePlanes, narrowed.c.PlaneCount())
}

func TestPortalNarrowing_EyeInDoorway(t *testing.T) {
	w := newWorld(t, culler.Options{PortalNarrowing: true})
	w.readyRooms(t)

	// standing in the portal plane: narrowing is skipped, nothing is lost
	w.look(t, math32.Vec3(0, 1, 10), math32.Vec3(0, 0, 1))
	assert.Equal(t, []core.ID{"statue"}, w.frame(t))
	assert.Equal(t, core.ID("a"), w.g.Root().StartZone())
}

func TestPortal_AdjacentZoneTestsAllPlanes(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, false))
	w.hydrate(t, "b", object("statue", 0, 1, 20), object("far", 0, 1, 150))

	// far sits beyond the far plane and must not inherit zone a's cleared bits
	assert.Equal(t, []core.ID{"table", "statue"}, w.frame(t))
}

func TestStartZoneCache(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)

	w.frame(t)
	assert.Equal(t, core.ID("a"), w.g.Root().StartZone())

	w.look(t, math32.Vec3(0, 1, 20), math32.Vec3(0, 0, -1))
	w.frame(t)
	assert.Equal(t, core.ID("b"), w.g.Root().StartZone())
}

func TestOutsideRegion(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)

	out, err := w.g.NewZone(core.ZoneSkeleton{ID: "out", Bound: math32.B3(-500, -10, -500, 500, 100, 500), Outside: true})
	require.NoError(t, err)
	assert.True(t, out.Outside())
	assert.Len(t, w.rec.topic(core.TopicOutsideRegionAttached), 1)
	w.hydrate(t, "out", object("tree", 0, 1, 60))

	w.look(t, math32.Vec3(0, 1, 45), math32.Vec3(0, 0, 1))
	w.frame(t)
	w.look(t, math32.Vec3(0, 1, 0), math32.Vec3(0, 0, 1))
	w.frame(t)
	require.Equal(t, core.ID("a"), w.g.Root().StartZone())

	w.look(t, math32.Vec3(0, 1, 45), math32.Vec3(0, 0, 1))
	assert.Equal(t, []core.ID{"tree"}, w.frame(t))
	assert.Empty(t, w.g.Root().StartZone(), "cache cleared when falling back to the out-region")
}

func TestNoZoneNoOutsideRegion_PlainTraversal(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)

	w.look(t, math32.Vec3(0, 1, -30), math32.Vec3(0, 0, 1))
	assert.Equal(t, []core.ID{"table", "statue"}, w.frame(t))
	assert.Empty(t, w.g.Root().StartZone())
}

func TestNoCull_VisitsEverything(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("behind", 0, 1, -5), object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, true))
	w.hydrate(t, "b", object("statue", 0, 1, 20))
	w.g.UpdateWorld()

	require.NoError(t, w.c.UpdateFrustumPlanes())
	require.NoError(t, w.g.CullVisibleSet(w.c, true))

	var ids []core.ID
	for _, s := range w.c.VisibleSet() {
		ids = append(ids, s.SpatialID())
	}
	assert.ElementsMatch(t, []core.ID{"behind", "table", "statue"}, ids)
}

func TestNullCullerCamera(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	c := culler.New(nil, culler.DefaultOptions())

	assert.ErrorIs(t, w.g.CullVisibleSet(c, false), ErrNullCullerCamera)
}

func TestCullModes(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())

	never := object("sky", 0, 1, -8)
	never.Description[parser.KeyCull] = string(core.CullNever)
	always := object("hidden", 0, 1, 5)
	always.Description[parser.KeyCull] = string(core.CullAlways)
	w.hydrate(t, "a", never, always, object("table", 0, 0.5, 5))

	assert.Equal(t, []core.ID{"sky", "table"}, w.frame(t))
}

func TestGroupChildren(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a",
		core.SpatialDescription{ID: "shelf", Kind: core.KindGroup, Description: core.Description{parser.KeyPosition: "0,0,6"}},
		core.SpatialDescription{ID: "book", Kind: core.KindObject, Parent: "shelf", Description: object("", 0, 1, 0).Description},
	)

	assert.Equal(t, []core.ID{"book"}, w.frame(t))
	book, ok := w.g.Find("book")
	require.True(t, ok)
	assert.Equal(t, math32.Vec3(0, 1, 6), book.WorldBound().Center())
}

func TestApplyContent_DecodeFailure(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())

	err := w.g.ApplyContent(core.ZoneContent{ZoneID: "a", Spatials: []core.SpatialDescription{
		object("table", 0, 0.5, 5),
		{ID: "broken", Kind: core.KindObject, Description: core.Description{}},
	}})
	require.Error(t, err)

	a, _ := w.g.Zone("a")
	assert.Equal(t, lazy.Failed, a.Status())
	assert.Equal(t, core.ErrorCodeDecodeFailed, a.FailureCode())
	assert.Empty(t, a.Children())
	_, ok := w.g.Find("table")
	assert.False(t, ok, "partially applied content is rolled back")
}

func TestApplyContent_ForeignParent(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5))

	err := w.g.ApplyContent(core.ZoneContent{ZoneID: "b", Spatials: []core.SpatialDescription{
		{ID: "cup", Kind: core.KindObject, Parent: "table", Description: object("", 0, 0, 0).Description},
	}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyContent_Errors(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)

	assert.ErrorIs(t, w.g.ApplyContent(core.ZoneContent{ZoneID: "missing"}), ErrNotFound)
	assert.ErrorIs(t, w.g.ApplyContent(core.ZoneContent{ZoneID: "a"}), lazy.ErrInvalidTransition)
}

func TestNestedZone(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", core.SpatialDescription{ID: "closet", Kind: core.KindZone, Description: core.Description{
		parser.KeyMin: "-1,0,4",
		parser.KeyMax: "1,2,6",
	}})

	w.frame(t)
	assert.Equal(t, 1, w.req.count("closet"))
}

func TestAttachOutsideRegion_Failures(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5))

	assert.ErrorIs(t, w.g.AttachOutsideRegion("missing"), ErrNotFound)
	assert.ErrorIs(t, w.g.AttachOutsideRegion("table"), ErrWrongKind)
	assert.ErrorIs(t, w.g.AttachOutsideRegion("b"), ErrWrongKind)

	failed := w.rec.topic(core.TopicOutsideRegionAttachmentFailed)
	require.Len(t, failed, 3)
	assert.Equal(t, core.ErrorCodeZoneNotFound, failed[0].(core.OutsideRegionAttachmentFailed).Code)
	assert.Equal(t, core.ErrorCodeNotAZone, failed[1].(core.OutsideRegionAttachmentFailed).Code)
	assert.Equal(t, core.ErrorCodeHasParentPortal, failed[2].(core.OutsideRegionAttachmentFailed).Code)

	_, ok := w.g.OutsideRegion()
	assert.False(t, ok)
}

func TestConstitute_Errors(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())

	_, err := w.g.Constitute(RootID, core.SpatialDescription{ID: "a", Kind: core.KindGroup})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = w.g.Constitute("missing", core.SpatialDescription{ID: "x", Kind: core.KindGroup})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = w.g.Constitute(RootID, core.SpatialDescription{ID: "x", Kind: "light"})
	assert.ErrorIs(t, err, ErrWrongKind)

	_, err = w.g.NewZone(core.ZoneSkeleton{ID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestUpdateWorld_MovesPortal(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)
	w.g.UpdateWorld()

	p, ok := w.g.Portal("p-ab")
	require.True(t, ok)
	assert.InDelta(t, 10, p.WorldQuad()[0].Z, 1e-5)
	assert.InDelta(t, 1, p.Plane().Normal.Z, 1e-5)

	require.NoError(t, w.g.SetLocalPosition("p-ab", math32.Vec3(0, 0, 2)))
	w.g.UpdateWorld()
	assert.InDelta(t, 12, p.WorldQuad()[0].Z, 1e-5)
	assert.InDelta(t, 12, p.Plane().Constant, 1e-5)
}

func TestRemove(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.readyRooms(t)
	before := w.g.Len()

	require.NoError(t, w.g.Remove("a"))
	_, ok := w.g.Find("table")
	assert.False(t, ok)
	assert.Equal(t, before-3, w.g.Len())
	assert.Error(t, w.g.Remove(RootID))
	assert.ErrorIs(t, w.g.Remove("a"), ErrNotFound)
}

func TestStats(t *testing.T) {
	w := newWorld(t, culler.DefaultOptions())
	w.hydrate(t, "a", object("table", 0, 0.5, 5), doorway("p-ab", "b", 10, false))
	w.frame(t)

	s := w.g.Stats()
	assert.Equal(t, 1, s.Zones[lazy.Ready])
	assert.Equal(t, 1, s.Zones[lazy.Loading])
	assert.Equal(t, core.ID("a"), s.StartZone)
	assert.Equal(t, w.g.Len(), s.Nodes)
}
