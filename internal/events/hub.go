// Package events fans matchmaking state changes out to websocket
// subscribers. Events are advisory: clients re-fetch authoritative state
// over HTTP, so a dropped event only delays a UI refresh.
package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is one broadcast frame.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

const (
	TypeLobbyUpdate  = "lobby_update"
	TypeMatchPending = "match_pending"
	TypeDraftUpdate  = "draft_update"
	TypeMatchDone    = "match_done"
	TypeMatchSettled = "match_settled"
)

// Publisher is the service-facing side of the hub.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards events. Used by tests that do not assert on
// broadcast behavior.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				client.Close()
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				h.clients[client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// slow client, drop the frame rather than block the hub
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Publish marshals and queues an event for every connected client.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR [events.Publish] marshal %s: %v", event.Type, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("WARN [events.Publish] broadcast queue full, dropping %s", event.Type)
	}
}

// Register attaches a client to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}
