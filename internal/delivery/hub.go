package delivery

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"adsb-tracker/pkg/aircraft"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one connected websocket subscriber. send is buffered so one
// slow client backs up rather than blocking the hub's broadcast loop.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// hubMessage is the wire shape pushed to every connected client: one
// tick's insert/remove batch, event-tagged so the client can apply it
// incrementally rather than re-rendering the whole active set.
type hubMessage struct {
	Event    string           `json:"event"`
	Inserted []aircraft.Alert `json:"inserted,omitempty"`
	Removed  []aircraft.Alert `json:"removed,omitempty"`
}

// Hub is a publish-only broadcast sink: every Deliver call is fanned out
// to every currently connected websocket client. It owns no aircraft
// state of its own; Deliver is driven entirely by the pipeline engine's
// tick results.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan hubMessage
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
}

// NewHub builds a Hub; call Run in its own goroutine before serving any
// connections.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan hubMessage, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run drives the hub's register/unregister/broadcast loop until ctx-free
// shutdown; callers stop it by closing the process, matching the
// teacher's fire-and-forget hub goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			log.Printf("[DELIVERY] client connected, total: %d", len(h.clients))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			log.Printf("[DELIVERY] client disconnected, total: %d", len(h.clients))

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("[DELIVERY] marshal error: %v", err)
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Deliver implements Sink by pushing one tick's batch onto the
// broadcast channel. It never blocks on a slow client: a full client
// send buffer gets the client dropped, not the whole hub stalled.
func (h *Hub) Deliver(inserted, removed []aircraft.Alert) error {
	h.broadcast <- hubMessage{Event: "tick", Inserted: inserted, Removed: removed}
	return nil
}

// HandleWebSocket upgrades an HTTP request to a websocket connection and
// registers it with the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[DELIVERY] upgrade error: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
