package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type codes emitted by the assistant.
const (
	TypeTurnCompleted    = "TURN_COMPLETED"
	TypeFileUploaded     = "FILE_UPLOADED"
	TypeFileProcessed    = "FILE_PROCESSED"
	TypeTicketCreated    = "TICKET_CREATED"
	TypeCallIndexed      = "CALL_INDEXED"
	TypeConversationRead = "CONVERSATION_READ"
)

// BaseEvent is the common implementation the publishers use.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewTurnCompleted signals that one user turn finished and a response is
// ready for push delivery.
func NewTurnCompleted(conversationID, messageID, intent string) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"message_id":      messageID,
			"intent":          intent,
		},
		OccurredAt: time.Now(),
	}
}

// NewFileUploaded signals that an uploaded file is waiting for processing.
func NewFileUploaded(fileID, mimeType string) BaseEvent {
	return BaseEvent{
		Type: TypeFileUploaded,
		Data: map[string]interface{}{
			"file_id":   fileID,
			"mime_type": mimeType,
		},
		OccurredAt: time.Now(),
	}
}

// NewTicketCreated signals that a tracker ticket was created from a
// conversation.
func NewTicketCreated(conversationID, issueKey string) BaseEvent {
	return BaseEvent{
		Type: TypeTicketCreated,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"issue_key":       issueKey,
		},
		OccurredAt: time.Now(),
	}
}
