// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/portalview/internal/geo"
	"github.com/OCAP2/portalview/internal/model"
	"github.com/OCAP2/portalview/pkg/core"
	"gorm.io/datatypes"
)

// descriptionToJSON converts a core.Description to datatypes.JSON for DB storage.
func descriptionToJSON(d core.Description) datatypes.JSON {
	if len(d) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(map[string]string(d))
	return datatypes.JSON(data)
}

// CoreToZone converts a zone skeleton to a GORM model.Zone.
func CoreToZone(s core.ZoneSkeleton) model.Zone {
	return model.Zone{
		ID:           string(s.ID),
		Bound:        geo.BoxWKT(s.Bound),
		ParentPortal: string(s.ParentPortal),
		Outside:      s.Outside,
		Description:  descriptionToJSON(s.Description),
	}
}

// CoreToSpatials converts a zone's content to GORM rows in content order.
func CoreToSpatials(c core.ZoneContent) []model.Spatial {
	rows := make([]model.Spatial, 0, len(c.Spatials))
	for i, sd := range c.Spatials {
		rows = append(rows, model.Spatial{
			ZoneID:      string(c.ZoneID),
			Seq:         i,
			SpatialID:   string(sd.ID),
			Parent:      string(sd.Parent),
			Kind:        sd.Kind,
			Description: descriptionToJSON(sd.Description),
		})
	}
	return rows
}

// CoreToCamera converts a camera description to a GORM model.Camera.
func CoreToCamera(id core.ID, d core.Description) model.Camera {
	return model.Camera{
		ID:          string(id),
		Description: descriptionToJSON(d),
	}
}
