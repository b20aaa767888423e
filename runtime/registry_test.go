package runtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"roomcast/domain"
	"roomcast/domain/envelope"
	"roomcast/errors"
)

type nopSender struct{}

func (nopSender) Deliver(envelope.Envelope) error { return nil }

func TestRegistry_Join_One_Room_One_Member(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := domain.ConnectionID(uuid.NewString())
	roomID := domain.RoomID("general")

	// Given no member is connected
	req.Empty(registry.Members(roomID))

	// When a member joins a room
	member, err := registry.Join(roomID, connID, nopSender{}, "alice")

	// Then
	req.NoError(err)
	req.Equal(connID, member.ConnectionID)
	req.Equal("alice", member.Username)
	req.False(member.JoinedAt.IsZero())

	members := registry.Members(roomID)
	req.Len(members, 1)
	req.Equal(member, members[0])
	req.Len(registry.Senders(roomID), 1)
}

func TestRegistry_Join_Duplicate_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := domain.ConnectionID(uuid.NewString())
	roomID := domain.RoomID("general")

	// Given a member already joined with this connection id
	_, err := registry.Join(roomID, connID, nopSender{}, "alice")
	req.NoError(err)

	// When the same connection id joins again
	_, err = registry.Join(roomID, connID, nopSender{}, "alice2")

	// Then the second join is rejected and the member set is unchanged
	req.ErrorIs(err, errors.ErrDuplicateConnection)
	req.Len(registry.Members(roomID), 1)
}

func TestRegistry_Join_Invalid_Username(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := domain.RoomID("general")

	for _, username := range []string{"", "a", "  a  ", "this_username_is_way_too_long"} {
		_, err := registry.Join(roomID, domain.ConnectionID(uuid.NewString()), nopSender{}, username)
		req.Error(err, "username %q should be rejected", username)
		req.IsType(errors.ValidationError{}, err)
	}
	req.Empty(registry.Members(roomID))
}

func TestRegistry_Join_Trims_Username(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	member, err := registry.Join("general", "c1", nopSender{}, "  alice  ")

	req.NoError(err)
	req.Equal("alice", member.Username)
}

func TestRegistry_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := domain.ConnectionID(uuid.NewString())
	roomID := domain.RoomID("general")

	joined, err := registry.Join(roomID, connID, nopSender{}, "alice")
	req.NoError(err)

	// When the member leaves
	left, found := registry.Leave(roomID, connID)

	// Then the first removal reports the member
	req.True(found)
	req.Equal(joined, left)
	req.Empty(registry.Members(roomID))

	// And the raced second removal is a silent no-op
	_, found = registry.Leave(roomID, connID)
	req.False(found)
}

func TestRegistry_Leave_Unknown_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, found := registry.Leave("nowhere", "c1")

	req.False(found)
	// Leave must not create the room as a side effect
	req.Zero(registry.RoomCount())
}

func TestRegistry_Room_Survives_Last_Leave(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := domain.RoomID("general")

	_, err := registry.Join(roomID, "c1", nopSender{}, "alice")
	req.NoError(err)
	_, found := registry.Leave(roomID, "c1")
	req.True(found)

	// The room stays registered so its history remains addressable
	req.Equal(1, registry.RoomCount())
	req.Empty(registry.Members(roomID))
}

func TestRegistry_GetOrCreate_Is_Idempotent_Under_Concurrency(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := domain.RoomID("general")

	var wg sync.WaitGroup
	rooms := make([]domain.Room, 64)
	for i := range rooms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = registry.GetOrCreate(roomID)
		}(i)
	}
	wg.Wait()

	// Exactly one Room instance is ever constructed per id
	req.Equal(1, registry.RoomCount())
	for _, room := range rooms {
		req.Equal(rooms[0].CreatedAt, room.CreatedAt)
	}
}

func TestRegistry_Members_Returns_A_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := domain.RoomID("general")

	_, err := registry.Join(roomID, "c1", nopSender{}, "alice")
	req.NoError(err)

	snapshot := registry.Members(roomID)
	snapshot[0].Username = "mallory"

	// Mutating the snapshot never touches registry state
	req.Equal("alice", registry.Members(roomID)[0].Username)
}

func TestRegistry_Concurrent_Joins_Count(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roomID := domain.RoomID("general")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Join(roomID, domain.ConnectionID(uuid.NewString()), nopSender{}, "member")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	req.Len(registry.Members(roomID), 50)
	req.Equal(50, registry.MemberCount())
}
