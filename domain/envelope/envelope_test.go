package envelope

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roomcast/errors"
)

func TestDecode_Wire_Field_Names(t *testing.T) {
	req := require.New(t)

	raw := []byte(`{"type":"chat","room":"general","username":"alice","content":"hi"}`)
	env, err := Decode(raw)

	req.NoError(err)
	req.Equal(TypeChat, env.Type)
	req.Equal("general", env.Room)
	req.Equal("alice", env.Username)
	req.Equal("hi", env.Content)
}

func TestDecode_Garbage_Is_A_Protocol_Violation(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte("{not json"))

	req.ErrorIs(err, errors.ErrProtocol)
}

func TestEncode_Omits_Absent_Fields(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	raw, err := Encode(NewJoinNotice("general", "alice", at))
	req.NoError(err)

	var fields map[string]any
	req.NoError(json.Unmarshal(raw, &fields))
	req.Contains(fields, "type")
	req.Contains(fields, "room")
	req.Contains(fields, "username")
	req.Contains(fields, "timestamp")
	// A join notice carries neither content nor a roster
	req.NotContains(fields, "content")
	req.NotContains(fields, "users")
}

func TestEncode_Timestamp_Is_ISO8601(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	raw, err := Encode(NewChat("general", "alice", "hi", at))
	req.NoError(err)

	var fields map[string]string
	req.NoError(json.Unmarshal([]byte(raw), &fields))
	req.Equal("2026-03-14T15:09:26Z", fields["timestamp"])
}

func TestRoundTrip_Users(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC().Truncate(time.Second)

	raw, err := Encode(NewUsers("general", []string{"alice", "bob"}, at))
	req.NoError(err)

	env, err := Decode(raw)
	req.NoError(err)
	req.Equal(TypeUsers, env.Type)
	req.Equal([]string{"alice", "bob"}, env.Users)
	req.True(env.Timestamp.Equal(at))
}

func TestCheckInbound(t *testing.T) {
	req := require.New(t)

	for _, typ := range []Type{TypeJoin, TypeChat, TypeLeave} {
		req.NoError(CheckInbound(Envelope{Type: typ}))
	}

	// Server-only and unknown types are protocol violations from a client
	for _, typ := range []Type{TypeUsers, TypeSystem, TypeError, Type("shout"), Type("")} {
		req.ErrorIs(CheckInbound(Envelope{Type: typ}), errors.ErrProtocol)
	}
}

func TestConstructors_Always_Set_Type_And_Room(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	envelopes := []Envelope{
		NewChat("r", "u", "c", at),
		NewJoinNotice("r", "u", at),
		NewLeaveNotice("r", "u", at),
		NewUsers("r", nil, at),
		NewSystem("r", "text", at),
		NewError("r", "reason", at),
	}
	for _, env := range envelopes {
		req.NotEmpty(env.Type)
		req.Equal("r", env.Room)
		req.False(env.Timestamp.IsZero())
	}
}
