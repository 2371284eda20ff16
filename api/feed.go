package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// =============================================================================
// LIVE FEED - Websocket push of attendance events to the admin panel
// =============================================================================

const (
	feedBuffer    = 16
	feedKeepalive = 30 * time.Second
	feedWriteWait = 5 * time.Second
)

// Feed fans out appended events to connected websocket clients. Slow
// clients miss events rather than block the writer.
type Feed struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan EventDTO]struct{}
}

// NewFeed accepts websocket origins from origins; "*" accepts any. With no
// origins only same-host requests are upgraded.
func NewFeed(logger *slog.Logger, origins []string) *Feed {
	f := &Feed{
		logger:      logger.With("component", "feed"),
		subscribers: make(map[chan EventDTO]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if len(origins) > 0 {
		f.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		}
	}
	return f
}

func (f *Feed) Subscribe() chan EventDTO {
	ch := make(chan EventDTO, feedBuffer)
	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *Feed) Unsubscribe(ch chan EventDTO) {
	f.mu.Lock()
	if _, ok := f.subscribers[ch]; ok {
		delete(f.subscribers, ch)
		close(ch)
	}
	f.mu.Unlock()
}

// Publish never blocks.
func (f *Feed) Publish(ev EventDTO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- ev:
		default:
			f.logger.Warn("dropping event for slow subscriber", "event", ev.ID)
		}
	}
}

// Subscribers reports the number of connected clients.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// ServeHTTP upgrades the connection and streams events as JSON.
// GET /api/feed
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		f.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(feedKeepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				f.logger.Debug("failed to write event", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				f.logger.Debug("failed to write keepalive", "err", err)
				return
			}
		}
	}
}
