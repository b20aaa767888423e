//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"roomcast/domain"
	"roomcast/domain/envelope"
)

// Connection is one client's bidirectional channel, handed over by the
// transport layer. Receive blocks the owning session only; Close must make
// a pending Receive return an error rather than hang.
type Connection interface {
	Send(env envelope.Envelope) error
	Receive() (envelope.Envelope, error)
	Close() error
}

// MessageStore durably persists chat messages per room and returns ordered
// history pages. Calls may block on I/O, so never hold a registry lock
// across them.
type MessageStore interface {
	Append(roomID domain.RoomID, msg domain.ChatMessage) (domain.StoredMessage, error)
	Recent(roomID domain.RoomID, limit int) ([]domain.StoredMessage, error)
}

// Sender is the send-capable reference the registry holds for a member.
// Deliver never blocks; an overflowing or broken receiver fails itself and
// gets force-removed instead of stalling the caller.
type Sender interface {
	Deliver(env envelope.Envelope) error
}

// RoomSender pairs a member's connection id with its Sender so the
// broadcast engine can report which receiver failed.
type RoomSender struct {
	ConnectionID domain.ConnectionID
	Sender       Sender
}

type IRegistry interface {
	GetOrCreate(roomID domain.RoomID) domain.Room
	Join(roomID domain.RoomID, connID domain.ConnectionID, sender Sender, username string) (domain.Member, error)
	Leave(roomID domain.RoomID, connID domain.ConnectionID) (domain.Member, bool)
	Members(roomID domain.RoomID) []domain.Member
	Senders(roomID domain.RoomID) []RoomSender
}

type IBroadcaster interface {
	Broadcast(roomID domain.RoomID, env envelope.Envelope)
}

// IPresence turns registry state changes into visible notifications.
// Callers only invoke it for calls the registry actually applied.
type IPresence interface {
	Joined(roomID domain.RoomID, member domain.Member)
	Left(roomID domain.RoomID, member domain.Member)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
