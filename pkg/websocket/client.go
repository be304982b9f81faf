package websocket

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// sendBuffer is how many frames a client may lag behind before the hub
// drops it.
const sendBuffer = 16

type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}
