package netlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

// Hub relays every frame it receives to all members, the sender included, so
// each peer applies its own actions on the echo like everyone else's.
type Hub struct {
	log          *slog.Logger
	writeTimeout time.Duration

	mu      deadlock.RWMutex
	members map[string]Conn
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:          logger,
		writeTimeout: defaultWriteTimeout,
		members:      make(map[string]Conn),
	}
}

// Len returns the number of connected members.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := Accept(w, r)
	if err != nil {
		h.log.Warn("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	if err := h.Serve(r.Context(), conn); err != nil {
		h.log.Info("member left", "remote", r.RemoteAddr, "err", err)
	}
}

// Serve registers conn and relays its frames until the connection or ctx
// ends.
func (h *Hub) Serve(ctx context.Context, conn Conn) error {
	id := uuid.NewString()
	h.mu.Lock()
	h.members[id] = conn
	n := len(h.members)
	h.mu.Unlock()
	h.log.Info("member joined", "member", id, "members", n)

	defer func() {
		h.mu.Lock()
		delete(h.members, id)
		h.mu.Unlock()
		_ = conn.Close(1000, "")
	}()

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("member %s: %w", id, err)
		}
		ev, err := Decode(data)
		if err != nil {
			h.log.Warn("dropping malformed frame", "member", id, "err", err)
			continue
		}
		h.log.Debug("relay", "member", id, "kind", ev.Kind, "entity", ev.EntityID)
		h.broadcast(ctx, data)
	}
}

func (h *Hub) broadcast(ctx context.Context, data []byte) {
	h.mu.RLock()
	targets := make(map[string]Conn, len(h.members))
	for id, c := range h.members {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
		err := c.Write(wctx, data)
		cancel()
		if err != nil {
			h.log.Warn("relay write failed", "member", id, "err", err)
		}
	}
}
