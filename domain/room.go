// Package domain contains core concepts of the broadcasting system.
// This file defines Room and Member entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"
)

// RoomID is the stable identity of a broadcast domain.
type RoomID string

// ConnectionID identifies one live client connection.
// A participant reconnecting always gets a fresh ConnectionID.
type ConnectionID string

// Room is a named, independent broadcast domain.
// Membership is owned by the registry; a Room value only carries identity.
// A Room is never destroyed once created so its history stays queryable.
type Room struct {
	ID        RoomID
	Name      string
	CreatedAt time.Time
}

func NewRoom(id RoomID) Room {
	return Room{
		ID:        id,
		Name:      string(id),
		CreatedAt: time.Now().UTC(),
	}
}

// Member is the presence-scoped identity of one connection within one room.
// The same username joining from a new connection yields a new Member.
type Member struct {
	ConnectionID ConnectionID
	Username     string
	JoinedAt     time.Time
}
