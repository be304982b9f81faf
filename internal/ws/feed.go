// Package ws serves the live leaderboard feed: a websocket endpoint plus the
// notifiers that push high-score updates to it.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	wsPkg "github.com/krishanu7/subway-trader-backend/pkg/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type FeedHandler struct {
	Hub      *wsPkg.Hub
	upgrader *websocket.Upgrader
	log      *zap.Logger
}

func NewFeedHandler(hub *wsPkg.Hub, allowedOrigins []string, log *zap.Logger) *FeedHandler {
	return &FeedHandler{
		Hub:      hub,
		upgrader: wsPkg.NewUpgrader(allowedOrigins),
		log:      log.Named("feed"),
	}
}

// ServeWS handles GET /ws/leaderboard. Subscribers only receive; anything
// they send is discarded.
func (h *FeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("feed upgrade failed", zap.Error(err))
		return
	}
	client := wsPkg.NewClient(conn)
	h.Hub.AddClient(client)

	go h.write(client)
	go h.read(client)
}

func (h *FeedHandler) read(c *wsPkg.Client) {
	defer func() {
		h.Hub.RemoveClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("feed read failed", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (h *FeedHandler) write(c *wsPkg.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("feed write failed", zap.String("client", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
