package main

import (
	"context"
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/OCAP2/portalview/internal/parser"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/pkg/core"
)

// The demo world: a hall opening north into a gallery and east onto a yard.
//
//	hall:    x,z in [-10,10]
//	gallery: x in [-10,10], z in [10,30]
//	yard:    the out-region
var demoSkeletons = []core.ZoneSkeleton{
	{ID: "hall", Bound: math32.B3(-10, 0, -10, 10, 5, 10)},
	{ID: "gallery", Bound: math32.B3(-10, 0, 10, 10, 5, 30), ParentPortal: "hall-gallery"},
	{ID: "yard", Bound: math32.B3Empty(), Outside: true},
}

func box(id core.ID, parent core.ID, pos math32.Vector3, half float32) core.SpatialDescription {
	return core.SpatialDescription{ID: id, Parent: parent, Kind: core.KindObject, Description: parser.DescribeObject(parser.ObjectSpec{
		NodeSpec: parser.NodeSpec{Position: pos},
		Bound:    math32.B3(-half, -half, -half, half, half, half),
	})}
}

func portal(id, zone core.ID, quad [4]math32.Vector3) core.SpatialDescription {
	return core.SpatialDescription{ID: id, Kind: core.KindPortal, Description: parser.DescribePortal(parser.PortalSpec{
		Quad: quad,
		Zone: zone,
		Open: true,
	})}
}

func demoContent() []core.ZoneContent {
	return []core.ZoneContent{
		{ZoneID: "hall", Spatials: []core.SpatialDescription{
			{ID: "hall-furniture", Kind: core.KindGroup, Description: parser.DescribeGroup(parser.NodeSpec{Position: math32.Vec3(0, 0, 4)})},
			box("table", "hall-furniture", math32.Vec3(0, 0.5, 0), 0.5),
			box("chair", "hall-furniture", math32.Vec3(1.5, 0.5, 0), 0.4),
			// normal along +Z, into the gallery
			portal("hall-gallery", "gallery", [4]math32.Vector3{
				math32.Vec3(-1, 0, 10), math32.Vec3(1, 0, 10),
				math32.Vec3(1, 2, 10), math32.Vec3(-1, 2, 10),
			}),
			// normal along +X, onto the yard
			portal("hall-yard", "yard", [4]math32.Vector3{
				math32.Vec3(10, 0, 1), math32.Vec3(10, 0, -1),
				math32.Vec3(10, 2, -1), math32.Vec3(10, 2, 1),
			}),
		}},
		{ZoneID: "gallery", Spatials: []core.SpatialDescription{
			box("statue", "", math32.Vec3(0, 1, 20), 1),
			box("painting", "", math32.Vec3(-9.5, 2, 25), 0.5),
		}},
		{ZoneID: "yard", Spatials: []core.SpatialDescription{
			box("tree", "", math32.Vec3(30, 2, 0), 2),
			box("well", "", math32.Vec3(20, 0.5, -15), 1),
		}},
	}
}

// seedWorld writes the demo world into backend, replacing what the ids held.
func seedWorld(ctx context.Context, backend storage.Backend) error {
	for _, skel := range demoSkeletons {
		skel.Description = parser.DescribeGroup(parser.NodeSpec{})
		if err := backend.SaveZoneSkeleton(ctx, skel); err != nil {
			return fmt.Errorf("seed skeleton %s: %w", skel.ID, err)
		}
	}
	for _, c := range demoContent() {
		if err := backend.SaveZoneContent(ctx, c); err != nil {
			return fmt.Errorf("seed content %s: %w", c.ZoneID, err)
		}
	}
	return nil
}
