package convert

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/OCAP2/portalview/internal/geo"
	"github.com/OCAP2/portalview/internal/model"
	"github.com/OCAP2/portalview/pkg/core"
	"gorm.io/datatypes"
)

func jsonToDescription(j datatypes.JSON) (core.Description, error) {
	if len(j) == 0 {
		return core.Description{}, nil
	}
	d := core.Description{}
	if err := json.Unmarshal(j, &d); err != nil {
		return nil, fmt.Errorf("failed to decode description: %w", err)
	}
	return d, nil
}

// ZoneToCore converts a GORM model.Zone back to a skeleton.
func ZoneToCore(z model.Zone) (core.ZoneSkeleton, error) {
	bound, err := geo.ParseBoxWKT(z.Bound)
	if err != nil {
		return core.ZoneSkeleton{}, fmt.Errorf("zone %s: %w", z.ID, err)
	}
	desc, err := jsonToDescription(z.Description)
	if err != nil {
		return core.ZoneSkeleton{}, fmt.Errorf("zone %s: %w", z.ID, err)
	}
	return core.ZoneSkeleton{
		ID:           core.ID(z.ID),
		Bound:        bound,
		ParentPortal: core.ID(z.ParentPortal),
		Outside:      z.Outside,
		Description:  desc,
	}, nil
}

// SpatialsToCore rebuilds a zone's content from its rows, ordered by Seq.
func SpatialsToCore(zoneID core.ID, rows []model.Spatial) (core.ZoneContent, error) {
	sorted := append([]model.Spatial(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	content := core.ZoneContent{ZoneID: zoneID, Spatials: make([]core.SpatialDescription, 0, len(sorted))}
	for _, r := range sorted {
		desc, err := jsonToDescription(r.Description)
		if err != nil {
			return core.ZoneContent{}, fmt.Errorf("spatial %s: %w", r.SpatialID, err)
		}
		content.Spatials = append(content.Spatials, core.SpatialDescription{
			ID:          core.ID(r.SpatialID),
			Kind:        r.Kind,
			Parent:      core.ID(r.Parent),
			Description: desc,
		})
	}
	return content, nil
}

// CameraToCore returns a persisted camera's id and description.
func CameraToCore(c model.Camera) (core.ID, core.Description, error) {
	desc, err := jsonToDescription(c.Description)
	if err != nil {
		return "", nil, fmt.Errorf("camera %s: %w", c.ID, err)
	}
	return core.ID(c.ID), desc, nil
}
