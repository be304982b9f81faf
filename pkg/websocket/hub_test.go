package websocket

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := NewClient(nil), NewClient(nil)
	hub.AddClient(a)
	hub.AddClient(b)
	require.Equal(t, 2, hub.Count())

	assert.Equal(t, 2, hub.Broadcast([]byte("hello")))
	assert.Equal(t, []byte("hello"), <-a.Send)
	assert.Equal(t, []byte("hello"), <-b.Send)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow, fast := NewClient(nil), NewClient(nil)
	hub.AddClient(slow)
	hub.AddClient(fast)

	for i := 0; i < sendBuffer; i++ {
		hub.Broadcast([]byte("x"))
		<-fast.Send
	}
	assert.Equal(t, 1, hub.Broadcast([]byte("overflow")))
	assert.Equal(t, 1, hub.Count())

	drained := 0
	for range slow.Send {
		drained++
	}
	assert.Equal(t, sendBuffer, drained, "slow client queue must be closed after its backlog")
}

func TestHub_RemoveTwice(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := NewClient(nil)
	hub.AddClient(c)
	hub.RemoveClient(c)
	assert.NotPanics(t, func() { hub.RemoveClient(c) })
	assert.Zero(t, hub.Count())
	assert.Zero(t, hub.Broadcast([]byte("nobody")))
}

func TestUpgrader_CheckOrigin(t *testing.T) {
	restricted := NewUpgrader([]string{"https://play.example.com"})
	open := NewUpgrader([]string{"*"})

	r := httptest.NewRequest("GET", "/ws/leaderboard", nil)
	assert.True(t, restricted.CheckOrigin(r), "missing origin")

	r.Header.Set("Origin", "https://play.example.com")
	assert.True(t, restricted.CheckOrigin(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, restricted.CheckOrigin(r))
	assert.True(t, open.CheckOrigin(r))
}
