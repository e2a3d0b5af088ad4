package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // API is meant for a trusted local network
	},
}

const writeWait = 5 * time.Second

// Event types pushed to subscribers.
const (
	EventHello  = "hello"
	EventReload = "reload"
)

// Event is a message to websocket subscribers.
type Event struct {
	Type     string   `json:"type"`
	LoadID   string   `json:"load_id,omitempty"`
	OK       bool     `json:"ok"`
	Servers  []string `json:"servers"`
	Problems []string `json:"problems,omitempty"`
}

// subscriber serializes writes to one connection.
type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (sub *subscriber) send(ev Event) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteJSON(ev)
}

// Hub fans reload events out to websocket subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub)
}

// Broadcast sends ev to every subscriber, dropping those that fail.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.send(ev); err != nil {
			log.Printf("websocket write error: %v", err)
			h.remove(sub)
			sub.conn.Close()
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		sub.conn.Close()
		delete(h.subs, sub)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{conn: conn}
	s.hub.add(sub)
	defer s.hub.remove(sub)

	cur := s.Current()
	hello := Event{Type: EventHello, OK: cur != nil, Servers: cur.Names()}
	if hello.Servers == nil {
		hello.Servers = []string{}
	}
	if err := sub.send(hello); err != nil {
		return
	}

	// Subscribers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}
