// Package envelope defines the typed message exchanged between client and
// server over one connection, and its JSON wire form.
package envelope

import (
	"encoding/json"
	"time"

	"roomcast/domain"
	"roomcast/errors"
)

// Type tags an Envelope. Clients may only send join, chat and leave;
// the server emits all six.
type Type string

const (
	TypeJoin   Type = "join"
	TypeChat   Type = "chat"
	TypeLeave  Type = "leave"
	TypeUsers  Type = "users"
	TypeSystem Type = "system"
	TypeError  Type = "error"
)

// Envelope is the single wire unit. Field names are part of the protocol,
// do not rename the JSON tags.
type Envelope struct {
	Type      Type      `json:"type"`
	Room      string    `json:"room"`
	Username  string    `json:"username,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Users     []string  `json:"users,omitempty"`
}

// Decode parses raw wire bytes. Undecodable data is a protocol violation,
// not a validation issue: the caller is expected to drop the connection.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.ErrProtocol
	}
	return env, nil
}

func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// CheckInbound rejects envelope types a client is not allowed to send.
func CheckInbound(env Envelope) error {
	switch env.Type {
	case TypeJoin, TypeChat, TypeLeave:
		return nil
	default:
		return errors.ErrProtocol
	}
}

// NewChat builds a broadcastable chat envelope.
// The timestamp is server-assigned; history replay reuses the stored one.
func NewChat(room domain.RoomID, username, content string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeChat,
		Room:      string(room),
		Username:  username,
		Content:   content,
		Timestamp: at,
	}
}

// NewJoinNotice announces a member entering the room.
func NewJoinNotice(room domain.RoomID, username string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeJoin,
		Room:      string(room),
		Username:  username,
		Timestamp: at,
	}
}

// NewLeaveNotice announces a member leaving the room, whether the member
// asked for it or delivery failures forced it.
func NewLeaveNotice(room domain.RoomID, username string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeLeave,
		Room:      string(room),
		Username:  username,
		Timestamp: at,
	}
}

// NewUsers carries the full current roster of a room.
func NewUsers(room domain.RoomID, usernames []string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeUsers,
		Room:      string(room),
		Timestamp: at,
		Users:     usernames,
	}
}

func NewSystem(room domain.RoomID, text string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeSystem,
		Room:      string(room),
		Content:   text,
		Timestamp: at,
	}
}

// NewError reports a per-envelope failure back to the offending sender only.
// The reason travels in the content field.
func NewError(room domain.RoomID, reason string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeError,
		Room:      string(room),
		Content:   reason,
		Timestamp: at,
	}
}
