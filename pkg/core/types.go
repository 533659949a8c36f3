// pkg/core/types.go
package core

// ID identifies a spatial (node, zone, portal, camera) across the scene registry,
// the store and the event surface.
type ID string

// Description is an opaque key/value blob describing a persisted spatial.
// The store hands it over unchanged; only the parser interprets the keys.
type Description map[string]string

// Get returns the value for key and whether it was present.
func (d Description) Get(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, ok := d[key]
	return v, ok
}

// Clone returns a copy that can be mutated independently.
func (d Description) Clone() Description {
	if d == nil {
		return nil
	}
	out := make(Description, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ErrorCode is carried by failure events.
type ErrorCode string

const (
	ErrorCodeNone            ErrorCode = ""
	ErrorCodeContentMissing  ErrorCode = "contentMissing"
	ErrorCodeLoadFailed      ErrorCode = "loadFailed"
	ErrorCodeDecodeFailed    ErrorCode = "decodeFailed"
	ErrorCodeZoneNotFound    ErrorCode = "zoneNotFound"
	ErrorCodeNotAZone        ErrorCode = "notAZone"
	ErrorCodeHasParentPortal ErrorCode = "hasParentPortal"
	ErrorCodeQueueFull       ErrorCode = "queueFull"
)

// Publisher delivers domain events to whoever subscribed to the topic.
type Publisher interface {
	Publish(topic string, payload any)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(topic string, payload any)

// Publish calls f.
func (f PublisherFunc) Publish(topic string, payload any) {
	f(topic, payload)
}

// NopPublisher drops every event.
var NopPublisher Publisher = PublisherFunc(func(string, any) {})
