package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeFeedSyncCompleted  MessageType = "feed.sync_completed"
	TypeFeedSyncError      MessageType = "feed.sync_error"
	TypeReconcileCompleted MessageType = "reconcile.completed"
	TypeConflictDetected   MessageType = "booking.conflict_detected"
	TypeNotification       MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// FeedSyncPayload is the payload for feed.sync_completed events.
type FeedSyncPayload struct {
	UnitID        string `json:"unit_id"`
	UnitName      string `json:"unit_name"`
	Status        string `json:"status"`
	EventsFound   int    `json:"events_found"`
	EventsUpdated int    `json:"events_updated"`
}

// FeedSyncErrorPayload is the payload for feed.sync_error events.
type FeedSyncErrorPayload struct {
	UnitID   string `json:"unit_id"`
	UnitName string `json:"unit_name"`
	Error    string `json:"error"`
	Message  string `json:"message"`
}

// ReconcilePayload is the payload for reconcile.completed events.
type ReconcilePayload struct {
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	Conflicts int `json:"conflicts"`
	Linked    int `json:"linked"`
	Unmatched int `json:"unmatched"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
