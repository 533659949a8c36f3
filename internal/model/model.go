package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Zone{},
	&Spatial{},
	&Camera{},
}

// Zone is a zone skeleton. Its content lives in the spatials table.
type Zone struct {
	ID           string         `json:"id" gorm:"primaryKey;size:128"`
	Bound        string         `json:"bound" gorm:"type:text"` // WKT LINESTRING Z, min then max corner
	ParentPortal string         `json:"parentPortal" gorm:"size:128"`
	Outside      bool           `json:"outside"`
	Description  datatypes.JSON `json:"description"`
	HasContent   bool           `json:"hasContent"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (*Zone) TableName() string {
	return "zones"
}

// Spatial is one persisted description of a zone's content. Seq keeps the order
// the spatials were saved in, parents first.
type Spatial struct {
	ID          uint           `json:"-" gorm:"primarykey;autoIncrement"`
	ZoneID      string         `json:"zoneId" gorm:"size:128;index:idx_spatial_zone_seq,priority:1"`
	Zone        Zone           `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ZoneID;"`
	Seq         int            `json:"seq" gorm:"index:idx_spatial_zone_seq,priority:2"`
	SpatialID   string         `json:"spatialId" gorm:"size:128"`
	Parent      string         `json:"parent" gorm:"size:128"`
	Kind        string         `json:"kind" gorm:"size:16"`
	Description datatypes.JSON `json:"description"`
}

func (*Spatial) TableName() string {
	return "spatials"
}

// Camera is a persisted camera description.
type Camera struct {
	ID          string         `json:"id" gorm:"primaryKey;size:128"`
	Description datatypes.JSON `json:"description"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (*Camera) TableName() string {
	return "cameras"
}
