package control

import (
	"encoding/json"
	"sync"
)

// Hub fans progress events out to connected websocket clients. Slow clients
// are skipped rather than blocking the broadcast path.
type Hub struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	broadcast chan any
	done      <-chan struct{}
}

type wsClient struct {
	send      chan []byte
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func NewHub(done <-chan struct{}) *Hub {
	h := &Hub{
		clients:   make(map[*wsClient]struct{}),
		broadcast: make(chan any, 128),
		done:      done,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				client.close()
			}
			h.clients = make(map[*wsClient]struct{})
			h.mu.Unlock()
			return
		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *Hub) Broadcast(msg any) {
	select {
	case h.broadcast <- msg:
	default:
	}
}
