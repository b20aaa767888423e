package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"roomcast/domain"
	"roomcast/domain/envelope"
	"roomcast/mocks"
)

func TestPresence_Joined_Announces_Notice_Then_Roster(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	presence := NewPresence(testLogger(), registry, broadcaster)
	roomID := domain.RoomID("general")

	member, err := registry.Join(roomID, "c1", nopSender{}, "alice")
	req.NoError(err)

	var order []envelope.Type
	broadcaster.EXPECT().
		Broadcast(roomID, gomock.Any()).
		Do(func(_ domain.RoomID, env envelope.Envelope) {
			order = append(order, env.Type)
			if env.Type == envelope.TypeUsers {
				req.Equal([]string{"alice"}, env.Users)
			}
		}).
		Times(2)

	// When the join is announced
	presence.Joined(roomID, member)

	// Then the notice precedes the full roster
	req.Equal([]envelope.Type{envelope.TypeJoin, envelope.TypeUsers}, order)
}

func TestPresence_Left_Announces_Notice_Then_Roster(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	presence := NewPresence(testLogger(), registry, broadcaster)
	roomID := domain.RoomID("general")

	_, err := registry.Join(roomID, "c-alice", nopSender{}, "alice")
	req.NoError(err)
	bob, err := registry.Join(roomID, "c-bob", nopSender{}, "bob")
	req.NoError(err)

	member, found := registry.Leave(roomID, "c-bob")
	req.True(found)
	req.Equal(bob, member)

	var order []envelope.Type
	broadcaster.EXPECT().
		Broadcast(roomID, gomock.Any()).
		Do(func(_ domain.RoomID, env envelope.Envelope) {
			order = append(order, env.Type)
			switch env.Type {
			case envelope.TypeLeave:
				req.Equal("bob", env.Username)
			case envelope.TypeUsers:
				// The roster no longer contains the departed member
				req.Equal([]string{"alice"}, env.Users)
			}
		}).
		Times(2)

	presence.Left(roomID, member)

	req.Equal([]envelope.Type{envelope.TypeLeave, envelope.TypeUsers}, order)
}

func TestPresence_Roster_Follows_Join_Order(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	presence := NewPresence(testLogger(), registry, broadcaster)
	roomID := domain.RoomID("general")

	_, err := registry.Join(roomID, "c-alice", nopSender{}, "alice")
	req.NoError(err)
	time.Sleep(time.Millisecond)
	bob, err := registry.Join(roomID, "c-bob", nopSender{}, "bob")
	req.NoError(err)

	var roster []string
	broadcaster.EXPECT().
		Broadcast(roomID, gomock.Any()).
		Do(func(_ domain.RoomID, env envelope.Envelope) {
			if env.Type == envelope.TypeUsers {
				roster = env.Users
			}
		}).
		Times(2)

	presence.Joined(roomID, bob)

	req.Equal([]string{"alice", "bob"}, roster)
}
