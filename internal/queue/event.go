// Package queue defines the audit events published to the message broker
// and the background consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded on the audit queue.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RecordEvent is published after a PDU or Acara mutation succeeds.  It
// carries enough for downstream consumers to build an audit trail without
// querying the primary database.
type RecordEvent struct {
	EventID  string `json:"event_id"`
	Entity   string `json:"entity"` // "pdu" | "acara"
	Action   string `json:"action"`
	RecordID uint64 `json:"record_id"`
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	At       string `json:"at"` // RFC3339
}

// NewRecordEvent builds an event with a fresh id and timestamp.
func NewRecordEvent(entity, action string, recordID, userID uint64, username string) RecordEvent {
	return RecordEvent{
		EventID:  uuid.NewString(),
		Entity:   entity,
		Action:   action,
		RecordID: recordID,
		UserID:   userID,
		Username: username,
		At:       time.Now().UTC().Format(time.RFC3339),
	}
}
