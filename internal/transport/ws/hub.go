package ws

import (
	"sync"
)

type Conn interface {
	Send(evt Event) error
	Close() error
	UserID() string
	ChannelID() string
}

type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[Conn]struct{} // channelID -> set of connections
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cs, ok := h.channels[c.ChannelID()]
	if !ok {
		cs = make(map[Conn]struct{})
		h.channels[c.ChannelID()] = cs
	}
	cs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cs, ok := h.channels[c.ChannelID()]; ok {
		delete(cs, c)
		if len(cs) == 0 {
			delete(h.channels, c.ChannelID())
		}
	}
}

func (h *Hub) Broadcast(channelID string, evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if cs, ok := h.channels[channelID]; ok {
		for c := range cs {
			_ = c.Send(evt) // best-effort
		}
	}
}
