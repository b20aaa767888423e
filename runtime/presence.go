package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"roomcast/contract"
	"roomcast/domain"
	"roomcast/domain/envelope"
)

// Presence translates registry state changes into visible notifications.
// It trusts its callers: only invoke Joined after Registry.Join succeeded
// and Left after Registry.Leave reported found=true. That contract is what
// keeps a raced double-Leave from producing duplicate notifications.
type Presence struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
}

func NewPresence(log *slog.Logger, registry contract.IRegistry, broadcaster contract.IBroadcaster) *Presence {
	return &Presence{log: log, registry: registry, broadcaster: broadcaster}
}

// Joined announces a new member: the join notice goes out first, the full
// roster second. Clients rely on that order to animate the arrival before
// reconciling the list.
func (p *Presence) Joined(roomID domain.RoomID, member domain.Member) {
	now := time.Now().UTC()
	p.broadcaster.Broadcast(roomID, envelope.NewJoinNotice(roomID, member.Username, now))
	p.broadcaster.Broadcast(roomID, p.roster(roomID, now))
	p.log.Debug(fmt.Sprintf("%s joined room %s", member.Username, roomID))
}

// Left announces a departure, explicit or forced, followed by the updated
// roster.
func (p *Presence) Left(roomID domain.RoomID, member domain.Member) {
	now := time.Now().UTC()
	p.broadcaster.Broadcast(roomID, envelope.NewLeaveNotice(roomID, member.Username, now))
	p.broadcaster.Broadcast(roomID, p.roster(roomID, now))
	p.log.Debug(fmt.Sprintf("%s left room %s", member.Username, roomID))
}

// roster builds a users envelope from the current member snapshot.
func (p *Presence) roster(roomID domain.RoomID, at time.Time) envelope.Envelope {
	usernames := lo.Map(p.registry.Members(roomID), func(m domain.Member, _ int) string {
		return m.Username
	})
	return envelope.NewUsers(roomID, usernames, at)
}
