package websocket

import (
	"log"

	"github.com/rental-calendar-sync/backend/internal/storage/models"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastSyncCompleted sends a feed sync completed event.
func (b *EventBroadcaster) BroadcastSyncCompleted(result models.UnitSyncResult) {
	payload := FeedSyncPayload{
		UnitID:        result.UnitID,
		UnitName:      result.UnitName,
		Status:        "success",
		EventsFound:   result.EventsFound,
		EventsUpdated: result.EventsUpdated,
	}
	if !result.OK {
		payload.Status = "error"
	}

	b.broadcast(NewMessage(TypeFeedSyncCompleted, payload))
}

// BroadcastSyncError sends a feed sync error event.
func (b *EventBroadcaster) BroadcastSyncError(result models.UnitSyncResult) {
	payload := FeedSyncErrorPayload{
		UnitID:   result.UnitID,
		UnitName: result.UnitName,
		Error:    "sync_error",
		Message:  result.Reason,
	}

	b.broadcast(NewMessage(TypeFeedSyncError, payload))
}

// BroadcastReconcileCompleted sends a reconcile pass summary.
func (b *EventBroadcaster) BroadcastReconcileCompleted(processed, matched, conflicts, linked, unmatched int) {
	payload := ReconcilePayload{
		Processed: processed,
		Matched:   matched,
		Conflicts: conflicts,
		Linked:    linked,
		Unmatched: unmatched,
	}

	b.broadcast(NewMessage(TypeReconcileCompleted, payload))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}

	b.broadcast(NewMessage(TypeNotification, payload))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
