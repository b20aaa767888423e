package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"roomcast/contract"
	"roomcast/domain"
	"roomcast/domain/envelope"
	"roomcast/errors"
)

// State of one session. Transitions only move forward:
// Connecting -> Joined -> Active -> Closed.
type State int32

const (
	StateConnecting State = iota
	StateJoined
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Masker rewrites chat content before it is persisted or broadcast.
type Masker interface {
	Mask(content string) string
}

// SessionConfig bounds the blocking points of one session.
type SessionConfig struct {
	JoinTimeout  time.Duration
	SendTimeout  time.Duration
	QueueSize    int
	HistoryLimit int
}

// DefaultSessionConfig matches the limits the service ships with.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		JoinTimeout:  10 * time.Second,
		SendTimeout:  3 * time.Second,
		QueueSize:    64,
		HistoryLimit: 50,
	}
}

// Session is the per-connection coordinator. It owns the Connection
// exclusively: nobody else reads it, and teardown always deregisters from
// the room before the handle is closed so fanout never hits a dead socket.
type Session struct {
	log         *slog.Logger
	conn        contract.Connection
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	presence    contract.IPresence
	store       contract.MessageStore
	masker      Masker
	cfg         SessionConfig

	id       domain.ConnectionID
	roomID   domain.RoomID
	member   domain.Member
	outbound *Outbound

	mu        sync.Mutex
	state     State
	leaveOnce sync.Once
	closed    chan struct{}
}

// NewSession wires a coordinator for one accepted connection. masker may be
// nil when moderation is disabled.
func NewSession(log *slog.Logger, conn contract.Connection,
	registry contract.IRegistry, broadcaster contract.IBroadcaster,
	presence contract.IPresence, store contract.MessageStore,
	masker Masker, cfg SessionConfig) *Session {
	id := domain.ConnectionID(uuid.NewString())
	return &Session{
		log:         log.With("connection_id", id),
		conn:        conn,
		registry:    registry,
		broadcaster: broadcaster,
		presence:    presence,
		store:       store,
		masker:      masker,
		cfg:         cfg,
		id:          id,
		state:       StateConnecting,
		closed:      make(chan struct{}),
	}
}

// ID returns the server-assigned connection identity.
func (s *Session) ID() domain.ConnectionID { return s.id }

// State reports the current lifecycle state, mostly for tests.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

type inbound struct {
	env envelope.Envelope
	err error
}

// Run drives the session until the client leaves, the transport dies, or a
// protocol violation occurs. It always returns with the connection closed
// and the member deregistered.
func (s *Session) Run() {
	defer s.shutdown()

	incoming := s.readLoop()

	if err := s.awaitJoin(incoming); err != nil {
		// Best effort: the client may already be gone.
		s.replyError(err)
		return
	}

	s.setState(StateActive)
	s.replayHistory()
	s.serve(incoming)
}

// readLoop owns Connection.Receive. A closed connection turns into a
// returned error, which ends the goroutine; the select on closed keeps it
// from leaking when the session exits first.
func (s *Session) readLoop() <-chan inbound {
	incoming := make(chan inbound)
	go func() {
		for {
			env, err := s.conn.Receive()
			select {
			case incoming <- inbound{env: env, err: err}:
			case <-s.closed:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return incoming
}

// awaitJoin implements the Connecting state: exactly one join envelope
// within the deadline, anything else ends the session.
func (s *Session) awaitJoin(incoming <-chan inbound) error {
	timer := time.NewTimer(s.cfg.JoinTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return errors.ErrJoinTimeout
	case in := <-incoming:
		if in.err != nil {
			return in.err
		}
		if in.env.Type != envelope.TypeJoin {
			return errors.ErrProtocol
		}
		return s.join(in.env)
	}
}

func (s *Session) join(env envelope.Envelope) error {
	req, err := domain.ValidateJoin(env.Room, env.Username)
	if err != nil {
		return err
	}
	roomID := domain.RoomID(req.Room)

	room := s.registry.GetOrCreate(roomID)
	out := NewOutbound(s.log, s.conn, s.cfg.QueueSize, s.cfg.SendTimeout, s.forceLeave)

	// Publish before registering: once the sender is in the registry a
	// concurrent broadcast may fail it, and the forced-removal path reads
	// these fields. The registry's room lock orders the writes for it.
	s.roomID = roomID
	s.outbound = out

	member, err := s.registry.Join(roomID, s.id, out, req.Username)
	if err != nil {
		// Never registered, so nobody else saw the sender: unpublish it so
		// the terminal error envelope goes out over the bare connection.
		s.roomID = ""
		s.outbound = nil
		out.Close()
		return err
	}

	s.member = member
	s.setState(StateJoined)
	go out.Run()

	s.presence.Joined(roomID, member)
	s.log.Info(fmt.Sprintf("%s joined %s", member.Username, room.Name))
	return nil
}

// replayHistory pushes the recent page straight to the joining connection,
// not through the broadcaster. Envelopes keep their stored timestamps so
// the client can tell history from live traffic.
func (s *Session) replayHistory() {
	stored, err := s.store.Recent(s.roomID, s.cfg.HistoryLimit)
	if err != nil {
		s.log.Warn("History replay failed", "room", s.roomID, "error", err)
		s.deliverSelf(envelope.NewError(s.roomID, errors.PersistenceError{Op: "recent", Err: err}.Error(), time.Now().UTC()))
		return
	}
	for _, msg := range stored {
		s.deliverSelf(envelope.NewChat(msg.RoomID, msg.Username, msg.Content, msg.At))
	}
}

// serve is the Active loop. The closed case covers a forced removal that
// already tore the session down while the reader was idle.
func (s *Session) serve(incoming <-chan inbound) {
	for {
		var in inbound
		select {
		case <-s.closed:
			return
		case in = <-incoming:
		}
		if in.err != nil {
			if in.err == errors.ErrProtocol {
				// Undecodable payload, as opposed to a dead transport.
				s.replyError(in.err)
				return
			}
			s.log.Debug(fmt.Sprintf("Receive ended: %v", in.err))
			return
		}
		switch in.env.Type {
		case envelope.TypeChat:
			s.handleChat(in.env)
		case envelope.TypeLeave:
			s.log.Debug("Client left explicitly")
			return
		case envelope.TypeJoin:
			// One join per connection; a second one is fatal.
			s.replyError(errors.ErrAlreadyJoined)
			return
		default:
			s.replyError(errors.ErrProtocol)
			return
		}
	}
}

// handleChat validates, moderates, persists, then broadcasts. Persistence
// comes first so an append failure aborts that one broadcast instead of
// fanning out a message history will never contain.
func (s *Session) handleChat(env envelope.Envelope) {
	if err := domain.ValidateContent(env.Content); err != nil {
		// Bad field value, the connection stays open.
		s.deliverSelf(envelope.NewError(s.roomID, err.Error(), time.Now().UTC()))
		return
	}

	content := env.Content
	if s.masker != nil {
		content = s.masker.Mask(content)
	}

	msg := domain.ChatMessage{
		Username: s.member.Username,
		Content:  content,
		At:       time.Now().UTC(),
	}
	stored, err := s.store.Append(s.roomID, msg)
	if err != nil {
		perr := errors.PersistenceError{Op: "append", Err: err}
		s.log.Error("Message append failed", "room", s.roomID, "error", err)
		s.deliverSelf(envelope.NewError(s.roomID, perr.Error(), time.Now().UTC()))
		return
	}

	s.broadcaster.Broadcast(s.roomID, envelope.NewChat(stored.RoomID, stored.Username, stored.Content, stored.At))
}

// deliverSelf targets the session's own connection only.
func (s *Session) deliverSelf(env envelope.Envelope) {
	if s.outbound != nil {
		_ = s.outbound.Deliver(env)
		return
	}
	_ = s.conn.Send(env)
}

// replyError sends a terminal error envelope best effort. The caller is on
// its way to shutdown. Once an outbound exists it is the only writer, so
// the envelope goes through it.
func (s *Session) replyError(err error) {
	s.log.Debug(fmt.Sprintf("Closing session: %v", err))
	s.deliverSelf(envelope.NewError(s.roomID, err.Error(), time.Now().UTC()))
}

// forceLeave is the delivery-failure path. Closing the connection here is
// what deterministically unblocks the session's pending Receive.
func (s *Session) forceLeave(reason error) {
	s.log.Warn("Forced removal", "room", s.roomID, "reason", reason)
	s.shutdown()
}

// shutdown deregisters exactly once, then closes the handle. Deregistration
// happens before the close so no broadcast ever targets a dead connection,
// and the found flag keeps the raced second Leave silent.
func (s *Session) shutdown() {
	s.leaveOnce.Do(func() {
		s.setState(StateClosed)
		if s.roomID != "" {
			if member, found := s.registry.Leave(s.roomID, s.id); found {
				s.presence.Left(s.roomID, member)
			}
		}
		if s.outbound != nil {
			s.outbound.Close()
			// Give the writer a chance to flush what is already queued
			// (a terminal error envelope, typically) before the handle dies.
			select {
			case <-s.outbound.Done():
			case <-time.After(s.cfg.SendTimeout):
			}
		}
		close(s.closed)
		_ = s.conn.Close()
	})
}
