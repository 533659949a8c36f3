// pkg/core/zone.go
package core

import "cogentcore.org/core/math32"

// Spatial kinds understood by the scene constitutor.
const (
	KindGroup  = "group"
	KindObject = "object"
	KindPortal = "portal"
	KindZone   = "zone"
)

// ZoneSkeleton is what is known about a zone before its content is hydrated.
type ZoneSkeleton struct {
	ID           ID
	Bound        math32.Box3 // local space
	Outside      bool        // out-region: no parent portal, owned by the management node
	ParentPortal ID          // metadata only, may be empty
	Description  Description
}

// SpatialDescription is one persisted spatial inside a zone's content.
// Parent is empty for direct children of the zone.
type SpatialDescription struct {
	ID          ID          `json:"id"`
	Kind        string      `json:"kind"`
	Parent      ID          `json:"parent,omitempty"`
	Description Description `json:"description"`
}

// ZoneContent is the hydrated subgraph of a zone, in parent-before-child order.
type ZoneContent struct {
	ZoneID   ID                   `json:"zoneId"`
	Spatials []SpatialDescription `json:"spatials"`
}

// CullMode decides how a node takes part in frustum tests.
type CullMode string

const (
	// CullDynamic tests the node's world bound against the frustum.
	CullDynamic CullMode = "dynamic"
	// CullNever always treats the node as visible.
	CullNever CullMode = "never"
	// CullAlways never draws the node or its subtree.
	CullAlways CullMode = "always"
)

// Valid reports whether m is one of the known modes.
func (m CullMode) Valid() bool {
	switch m {
	case CullDynamic, CullNever, CullAlways:
		return true
	}
	return false
}

// HydrateResult is what a hydrate worker posts back for the frame thread to apply.
// Code is empty on success.
type HydrateResult struct {
	ZoneID  ID
	Content ZoneContent
	Code    ErrorCode
	Reason  string
}

// Failed reports whether the load did not produce content.
func (r HydrateResult) Failed() bool { return r.Code != ErrorCodeNone }
