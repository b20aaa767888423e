package runtime

import (
	"fmt"
	"log/slog"
	"sync"

	"roomcast/contract"
	"roomcast/domain"
	"roomcast/domain/envelope"
)

// Broadcaster fans one envelope out to every member of a room.
//
// Broadcast calls for one room serialize on that room's dispatch lock, so
// all live receivers observe envelopes in the order the calls were
// accepted. Delivery itself is one independent non-blocking enqueue per
// connection: a slow or broken receiver fails itself and is force-removed,
// it never stalls or aborts delivery to the others. Cross-room ordering is
// unspecified.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry

	mu       sync.Mutex
	dispatch map[domain.RoomID]*sync.Mutex
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry) *Broadcaster {
	return &Broadcaster{
		log:      log,
		registry: registry,
		dispatch: make(map[domain.RoomID]*sync.Mutex),
	}
}

func (b *Broadcaster) Broadcast(roomID domain.RoomID, env envelope.Envelope) {
	lock := b.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	// Snapshot under the dispatch lock: every member present at this point
	// gets the envelope enqueued before any later Broadcast call runs.
	for _, rs := range b.registry.Senders(roomID) {
		if err := rs.Sender.Deliver(env); err != nil {
			// The sender already scheduled its own forced removal.
			b.log.Debug(fmt.Sprintf("Delivery to %s in room %s failed: %v",
				rs.ConnectionID, roomID, err))
		}
	}
}

func (b *Broadcaster) roomLock(roomID domain.RoomID) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.dispatch[roomID]
	if !ok {
		lock = &sync.Mutex{}
		b.dispatch[roomID] = lock
	}
	return lock
}
