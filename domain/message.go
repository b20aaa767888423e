// Package domain contains core concepts of the broadcasting system.
// This file defines chat message records.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is the content a member wants to broadcast into a room.
type ChatMessage struct {
	Username string
	Content  string
	At       time.Time
}

// StoredMessage is the persisted form of a ChatMessage.
// The store assigns the ID; the pair (RoomID, At, ID) orders history.
type StoredMessage struct {
	ID       uuid.UUID
	RoomID   RoomID
	Username string
	Content  string
	At       time.Time
}
