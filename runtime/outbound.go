package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roomcast/contract"
	"roomcast/domain/envelope"
	"roomcast/errors"
)

// Outbound is the single-writer path to one connection. Deliver is called
// by fanout and by history replay; only the writer goroutine ever touches
// Connection.Send, which preserves per-recipient ordering.
//
// A full queue or a failing Send marks the connection for forced removal.
// The owner's failure callback closes the transport, which in turn unblocks
// the session's pending Receive.
type Outbound struct {
	log         *slog.Logger
	conn        contract.Connection
	queue       chan envelope.Envelope
	sendTimeout time.Duration
	onFailure   func(reason error)

	failOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewOutbound(log *slog.Logger, conn contract.Connection, bufferSize int,
	sendTimeout time.Duration, onFailure func(reason error)) *Outbound {
	return &Outbound{
		log:         log,
		conn:        conn,
		queue:       make(chan envelope.Envelope, bufferSize),
		sendTimeout: sendTimeout,
		onFailure:   onFailure,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Deliver enqueues without blocking. A receiver that cannot drain its own
// queue is a failed receiver: it gets removed, the caller moves on.
func (o *Outbound) Deliver(env envelope.Envelope) error {
	select {
	case <-o.stop:
		return errors.ErrClosed
	default:
	}

	select {
	case o.queue <- env:
		return nil
	default:
		o.fail(errors.ErrQueueFull)
		return errors.ErrQueueFull
	}
}

// Run drains the queue until Close. Send failures and timeouts are
// converted into a forced removal, never surfaced to the sender.
func (o *Outbound) Run() {
	defer close(o.done)
	for {
		select {
		case <-o.stop:
			o.drain()
			return
		case env := <-o.queue:
			if err := o.send(env); err != nil {
				o.fail(err)
				return
			}
		}
	}
}

// drain flushes whatever is already queued at Close time, a terminal error
// envelope mostly. Best effort: the first failing send ends it.
func (o *Outbound) drain() {
	for {
		select {
		case env := <-o.queue:
			if err := o.send(env); err != nil {
				return
			}
		default:
			return
		}
	}
}

// send guards the transport write with a bounded timer. The websocket
// adapter already applies a write deadline, the timer protects against a
// Connection implementation that doesn't.
func (o *Outbound) send(env envelope.Envelope) error {
	result := make(chan error, 1)
	go func() { result <- o.conn.Send(env) }()

	timer := time.NewTimer(o.sendTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return errors.ErrSendTimeout
	}
}

func (o *Outbound) fail(reason error) {
	o.failOnce.Do(func() {
		o.log.Debug(fmt.Sprintf("Outbound failed, forcing removal: %v", reason))
		o.Close()
		if o.onFailure != nil {
			// Asynchronous on purpose: fail can fire from inside a
			// broadcast holding the room dispatch lock, and the removal
			// path broadcasts a leave notice into that same room.
			go o.onFailure(reason)
		}
	})
}

// Close stops the writer. The writer flushes what is already queued, then
// exits.
func (o *Outbound) Close() {
	o.stopOnce.Do(func() { close(o.stop) })
}

// Done reports writer termination, used by tests and session teardown.
func (o *Outbound) Done() <-chan struct{} {
	return o.done
}
