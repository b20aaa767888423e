// Package ws adapts a gorilla websocket to the core's Connection interface.
// Upgrading, TLS and framing concerns stop here; the core only ever sees
// envelopes.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roomcast/domain/envelope"
	"roomcast/errors"
)

// Conn wraps one websocket. The session coordinator owns the read side,
// its outbound writer owns the write side; Conn itself adds deadlines and
// idempotent close.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// Send writes one envelope under a write deadline so a stalled client
// cannot hold the writer forever.
func (c *Conn) Send(env envelope.Envelope) error {
	raw, err := envelope.Encode(env)
	if err != nil {
		return err
	}
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, raw)
}

// Receive blocks until the next client envelope. A closed socket surfaces
// as an error, never as a hang; undecodable payloads surface as a protocol
// violation so the caller drops the connection.
func (c *Conn) Receive() (envelope.Envelope, error) {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return envelope.Envelope{}, errors.ErrClosed
	}
	env, err := envelope.Decode(raw)
	if err != nil {
		return envelope.Envelope{}, err
	}
	// Clients may only send join, chat and leave.
	return env, envelope.CheckInbound(env)
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(c.writeTimeout)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
