// Package runtime owns presence propagation, fan-out, and the per-connection
// session loops. It orchestrates the system without containing business
// logic or domain rules.
package runtime

import (
	"sort"
	"sync"
	"time"

	"roomcast/contract"
	"roomcast/domain"
	"roomcast/errors"
)

// Registry is the single source of truth for which connections belong to
// which room. The outer lock only guards the room map; every mutation of a
// room's member set serializes on that room's own lock, so busy rooms do
// not contend with unrelated ones.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
}

type roomState struct {
	mu      sync.Mutex
	room    domain.Room
	members map[domain.ConnectionID]domain.Member
	senders map[domain.ConnectionID]contract.Sender
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*roomState)}
}

// GetOrCreate returns the room for an id, creating it on first use.
// Concurrent calls for the same id always resolve to the same instance;
// the double check under the write lock is what prevents two creations.
// Rooms are never destroyed, history must stay queryable with zero members.
func (r *Registry) GetOrCreate(roomID domain.RoomID) domain.Room {
	return r.state(roomID).room
}

func (r *Registry) state(roomID domain.RoomID) *roomState {
	r.mu.RLock()
	state, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return state
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok = r.rooms[roomID]; ok {
		return state
	}
	state = &roomState{
		room:    domain.NewRoom(roomID),
		members: make(map[domain.ConnectionID]domain.Member),
		senders: make(map[domain.ConnectionID]contract.Sender),
	}
	r.rooms[roomID] = state
	return state
}

// Join inserts a member into a room. It rejects a connection id already
// present and a username outside the trimmed 2-20 rule. Join emits no
// broadcast itself, notification order is the caller's concern.
func (r *Registry) Join(roomID domain.RoomID, connID domain.ConnectionID,
	sender contract.Sender, username string) (domain.Member, error) {
	req, err := domain.ValidateJoin(string(roomID), username)
	if err != nil {
		return domain.Member{}, err
	}

	state := r.state(roomID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, ok := state.members[connID]; ok {
		return domain.Member{}, errors.ErrDuplicateConnection
	}

	member := domain.Member{
		ConnectionID: connID,
		Username:     req.Username,
		JoinedAt:     time.Now().UTC(),
	}
	state.members[connID] = member
	state.senders[connID] = sender
	return member, nil
}

// Leave removes a member. It is idempotent: disconnect paths race with
// forced removal, so an already-absent connection reports found=false
// instead of failing.
func (r *Registry) Leave(roomID domain.RoomID, connID domain.ConnectionID) (domain.Member, bool) {
	r.mu.RLock()
	state, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return domain.Member{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	member, found := state.members[connID]
	if !found {
		return domain.Member{}, false
	}
	delete(state.members, connID)
	delete(state.senders, connID)
	return member, true
}

// Members returns a snapshot copy, never a live reference, so callers can
// iterate without racing registry mutation. The result is sorted by join
// time for stable roster rendering.
func (r *Registry) Members(roomID domain.RoomID) []domain.Member {
	r.mu.RLock()
	state, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	members := make([]domain.Member, 0, len(state.members))
	for _, m := range state.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ConnectionID < members[j].ConnectionID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members
}

// Senders resolves the current send-capable references for a room.
// Like Members, it hands out a snapshot.
func (r *Registry) Senders(roomID domain.RoomID) []contract.RoomSender {
	r.mu.RLock()
	state, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	senders := make([]contract.RoomSender, 0, len(state.senders))
	for id, sender := range state.senders {
		senders = append(senders, contract.RoomSender{ConnectionID: id, Sender: sender})
	}
	return senders
}

// RoomCount is exposed for telemetry.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// MemberCount sums live members across all rooms, for telemetry.
func (r *Registry) MemberCount() int {
	r.mu.RLock()
	states := make([]*roomState, 0, len(r.rooms))
	for _, s := range r.rooms {
		states = append(states, s)
	}
	r.mu.RUnlock()

	total := 0
	for _, s := range states {
		s.mu.Lock()
		total += len(s.members)
		s.mu.Unlock()
	}
	return total
}
