// pkg/core/events.go
package core

// Event topics published on the dispatcher.
const (
	TopicCameraCreated                 = ":CAMERA:CREATED:"
	TopicCameraUpdated                 = ":CAMERA:UPDATED:"
	TopicZoneHydrated                  = ":ZONE:HYDRATED:"
	TopicHydrationFailed               = ":ZONE:HYDRATION:FAILED:"
	TopicPortalZoneAttached            = ":PORTAL:ZONE:ATTACHED:"
	TopicPortalZoneAttachmentFailed    = ":PORTAL:ZONE:ATTACHMENT:FAILED:"
	TopicOutsideRegionAttached         = ":OUTSIDE:ATTACHED:"
	TopicOutsideRegionAttachmentFailed = ":OUTSIDE:ATTACHMENT:FAILED:"
)

// CameraCreated is published when a camera enters its repository.
type CameraCreated struct {
	CameraID ID
}

// CameraUpdated is published after every successful camera mutation.
type CameraUpdated struct {
	CameraID ID
	Version  uint64
}

// ZoneHydrated is published once a zone's content has been applied.
type ZoneHydrated struct {
	ZoneID   ID
	Spatials int
}

// HydrationFailed is published when a zone's content could not be loaded or applied.
type HydrationFailed struct {
	ZoneID ID
	Code   ErrorCode
	Reason string
}

// PortalZoneAttached is published when a portal resolves its adjacent zone.
type PortalZoneAttached struct {
	PortalID ID
	ZoneID   ID
}

// PortalZoneAttachmentFailed is published when a portal's adjacent zone does not resolve.
type PortalZoneAttachmentFailed struct {
	PortalID ID
	ZoneID   ID
	Code     ErrorCode
}

// OutsideRegionAttached is published when the management node takes ownership of an out-region.
type OutsideRegionAttached struct {
	ZoneID ID
}

// OutsideRegionAttachmentFailed is published when an out-region cannot be attached.
type OutsideRegionAttachmentFailed struct {
	ZoneID ID
	Code   ErrorCode
}
