package websocket

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
)

// NewUpgrader accepts handshakes from the given origins; "*" allows any.
// Requests without an Origin header (non-browser clients) are always accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
}
