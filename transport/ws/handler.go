package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"roomcast/contract"
	"roomcast/runtime"
)

// Handler upgrades HTTP requests and hands each accepted socket to a fresh
// session coordinator. Authentication, cookies and routing are the host
// application's business and must happen before this handler runs.
type Handler struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	presence    contract.IPresence
	store       contract.MessageStore
	masker      runtime.Masker
	cfg         runtime.SessionConfig
	upgrader    websocket.Upgrader
}

func NewHandler(log *slog.Logger, registry contract.IRegistry,
	broadcaster contract.IBroadcaster, presence contract.IPresence,
	store contract.MessageStore, masker runtime.Masker,
	cfg runtime.SessionConfig) *Handler {
	return &Handler{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		presence:    presence,
		store:       store,
		masker:      masker,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy belongs to the embedding application.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := NewConn(socket, h.cfg.SendTimeout)
	session := runtime.NewSession(h.log, conn, h.registry, h.broadcaster,
		h.presence, h.store, h.masker, h.cfg)

	h.log.Debug("Connection accepted", "remote", r.RemoteAddr, "connection_id", session.ID())
	go session.Run()
}
