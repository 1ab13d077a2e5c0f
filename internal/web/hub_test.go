package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_BroadcastDropsSlowClients(t *testing.T) {
	h := NewHub(func() {})
	fast := &wsClient{send: make(chan []byte, 2)}
	slow := &wsClient{send: make(chan []byte)}
	h.clients[fast] = struct{}{}
	h.clients[slow] = struct{}{}

	h.Broadcast(statusPayload{Loaded: true})

	assert.Equal(t, 1, h.Len())
	msg := <-fast.send
	assert.Contains(t, string(msg), `"type":"snapshot"`)

	_, open := <-slow.send
	assert.False(t, open, "канал медленного клиента закрыт")

	h.Close()
	assert.Equal(t, 0, h.Len())
	_, open = <-fast.send
	assert.False(t, open)
}
