// Package storagetest holds the behaviour every storage.Backend must share.
package storagetest

import (
	"context"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/pkg/core"
)

// Hall is a zone skeleton used by the suite.
func Hall() core.ZoneSkeleton {
	return core.ZoneSkeleton{
		ID:          "hall",
		Bound:       math32.B3(-10, 0, -10, 10, 5, 10),
		Description: core.Description{"position": "0,0,0"},
	}
}

// HallContent is content for Hall, parents before children.
func HallContent() core.ZoneContent {
	return core.ZoneContent{ZoneID: "hall", Spatials: []core.SpatialDescription{
		{ID: "shelf", Kind: core.KindGroup, Description: core.Description{"position": "0,0,6"}},
		{ID: "book", Kind: core.KindObject, Parent: "shelf", Description: core.Description{"min": "0,0,0", "max": "1,1,1"}},
		{ID: "door", Kind: core.KindPortal, Description: core.Description{
			"quad": "LINESTRING Z (-1 0 10,1 0 10,1 2 10,-1 2 10,-1 0 10)",
			"zone": "yard",
		}},
	}}
}

// Run exercises b, which must be initialised and empty.
func Run(t *testing.T, b storage.Backend) {
	ctx := context.Background()

	t.Run("skeletons", func(t *testing.T) {
		require.NoError(t, b.SaveZoneSkeleton(ctx, Hall()))
		require.NoError(t, b.SaveZoneSkeleton(ctx, core.ZoneSkeleton{ID: "yard", Bound: math32.B3Empty(), Outside: true}))

		skels, err := b.ZoneSkeletons(ctx)
		require.NoError(t, err)
		require.Len(t, skels, 2)

		byID := map[core.ID]core.ZoneSkeleton{}
		for _, s := range skels {
			byID[s.ID] = s
		}
		assert.Equal(t, Hall().Bound, byID["hall"].Bound)
		assert.Equal(t, "0,0,0", byID["hall"].Description["position"])
		assert.True(t, byID["yard"].Outside)
		assert.True(t, byID["yard"].Bound.IsEmpty())
	})

	t.Run("content missing", func(t *testing.T) {
		has, err := b.HasZoneContent(ctx, "hall")
		require.NoError(t, err)
		assert.False(t, has)

		_, err = b.LoadZoneContent(ctx, "hall")
		assert.ErrorIs(t, err, storage.ErrContentMissing)

		_, err = b.LoadZoneContent(ctx, "nowhere")
		assert.ErrorIs(t, err, storage.ErrZoneNotFound)

		has, err = b.HasZoneContent(ctx, "nowhere")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("content", func(t *testing.T) {
		require.NoError(t, b.SaveZoneContent(ctx, HallContent()))

		has, err := b.HasZoneContent(ctx, "hall")
		require.NoError(t, err)
		assert.True(t, has)

		got, err := b.LoadZoneContent(ctx, "hall")
		require.NoError(t, err)
		assert.Equal(t, HallContent(), got)
	})

	t.Run("content replaced", func(t *testing.T) {
		replaced := core.ZoneContent{ZoneID: "hall", Spatials: HallContent().Spatials[:1]}
		require.NoError(t, b.SaveZoneContent(ctx, replaced))

		got, err := b.LoadZoneContent(ctx, "hall")
		require.NoError(t, err)
		assert.Equal(t, replaced, got)
	})

	t.Run("empty content is content", func(t *testing.T) {
		require.NoError(t, b.SaveZoneContent(ctx, core.ZoneContent{ZoneID: "yard"}))
		has, err := b.HasZoneContent(ctx, "yard")
		require.NoError(t, err)
		assert.True(t, has)

		got, err := b.LoadZoneContent(ctx, "yard")
		require.NoError(t, err)
		assert.Empty(t, got.Spatials)
	})

	t.Run("content for unknown zone", func(t *testing.T) {
		err := b.SaveZoneContent(ctx, core.ZoneContent{ZoneID: "nowhere"})
		assert.ErrorIs(t, err, storage.ErrZoneNotFound)
	})

	t.Run("skeleton update keeps content", func(t *testing.T) {
		moved := Hall()
		moved.Bound = math32.B3(0, 0, 0, 1, 1, 1)
		require.NoError(t, b.SaveZoneSkeleton(ctx, moved))

		has, err := b.HasZoneContent(ctx, "hall")
		require.NoError(t, err)
		assert.True(t, has)

		skels, err := b.ZoneSkeletons(ctx)
		require.NoError(t, err)
		assert.Len(t, skels, 2)
	})
}

// RunCameras exercises a CameraStore. Writes may be asynchronous until flush returns.
func RunCameras(t *testing.T, s storage.CameraStore, flush func()) {
	ctx := context.Background()

	require.NoError(t, s.SaveCamera(ctx, "main", core.Description{"eye": "0,1,0"}))
	require.NoError(t, s.SaveCamera(ctx, "main", core.Description{"eye": "0,2,0"}))
	require.NoError(t, s.SaveCamera(ctx, "map", core.Description{"projection": "ortho"}))
	flush()

	cams, err := s.Cameras(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[core.ID]core.Description{
		"main": {"eye": "0,2,0"},
		"map":  {"projection": "ortho"},
	}, cams)
}
