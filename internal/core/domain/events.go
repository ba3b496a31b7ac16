package domain

import "time"

type EventType string

const (
	EventUploaded    EventType = "document.uploaded"
	EventQuarantined EventType = "document.quarantined"
	EventReleased    EventType = "document.released"
	EventDeleted     EventType = "document.deleted"
	EventCorrupted   EventType = "document.corrupted"
)

// Event is one entry in the document lifecycle feed. The feed is advisory:
// consumers audit and notify, they never drive pipeline state.
type Event struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

// QuarantineEvent is one row of the append-only quarantine reason log.
type QuarantineEvent struct {
	DocumentID string    `json:"document_id"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}
