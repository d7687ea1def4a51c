package room

// EventKind discriminates the push-event union. Every kind has a fixed
// payload schema carrying the full resulting entity, so receivers can apply
// events without prior state.
type EventKind string

const (
	EventAnnotationAdded         EventKind = "annotationAdded"
	EventAnnotationReplyAdded    EventKind = "annotationReplyAdded"
	EventAnnotationStatusUpdated EventKind = "annotationStatusUpdated"
	EventAnnotationRemoved       EventKind = "annotationRemoved"
	EventProjectStatusChanged    EventKind = "projectStatusChanged"

	// control acks, room-local
	EventJoined   EventKind = "joined"
	EventLeft     EventKind = "left"
	EventPresence EventKind = "presence"
	EventError    EventKind = "error"
)

type Event struct {
	Kind      EventKind `json:"type"`
	ProjectID uint64    `json:"projectId"`
	Payload   any       `json:"payload"`
}

// PresencePayload announces membership changes to the remaining room.
type PresencePayload struct {
	Action  string `json:"action"` // "joined" | "left"
	Role    string `json:"role"`
	Name    string `json:"name"`
	Members int    `json:"members"`
}
