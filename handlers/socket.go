package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"readtrack/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client is one websocket subscriber, scoped to a single conversation.
type Client struct {
	ID             string
	ConversationID int64
	Conn           *websocket.Conn
	Send           chan []byte
}

// Hub maintains the set of active clients
type Hub struct {
	clients    map[string]*Client // client id -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastPayload
	mutex      sync.RWMutex
}

type BroadcastPayload struct {
	ConversationID int64
	Message        []byte
}

var hub = &Hub{
	clients:    make(map[string]*Client),
	register:   make(chan *Client),
	unregister: make(chan *Client),
	broadcast:  make(chan BroadcastPayload, 256),
}

// RunHub starts the websocket hub
func RunHub() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client.ID] = client
			hub.mutex.Unlock()
			log.Printf("Subscriber connected: conversation %d", client.ConversationID)

		case client := <-hub.unregister:
			hub.mutex.Lock()
			if _, ok := hub.clients[client.ID]; ok {
				delete(hub.clients, client.ID)
				close(client.Send)
			}
			hub.mutex.Unlock()
			log.Printf("Subscriber disconnected: conversation %d", client.ConversationID)

		case payload := <-hub.broadcast:
			hub.mutex.RLock()
			for id, client := range hub.clients {
				if client.ConversationID != payload.ConversationID {
					continue
				}
				select {
				case client.Send <- payload.Message:
				default:
					close(client.Send)
					delete(hub.clients, id)
				}
			}
			hub.mutex.RUnlock()
		}
	}
}

// BroadcastStatus pushes a messageStatusUpdate event to every subscriber of
// the event's conversation.
func BroadcastStatus(ev models.StatusEvent) {
	data, err := json.Marshal(models.SocketMessage{
		Type:    models.EventMessageStatus,
		Payload: ev,
	})
	if err != nil {
		log.Printf("Error marshaling status event: %v", err)
		return
	}

	hub.broadcast <- BroadcastPayload{
		ConversationID: ev.ConversationID,
		Message:        data,
	}
}

// HandleSocket handles websocket subscriptions. The conversation_id query
// parameter scopes which status updates the client receives.
func HandleSocket(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.URL.Query().Get("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Conn:           conn,
		Send:           make(chan []byte, 256),
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		hub.unregister <- c
		c.Conn.Close()
	}()

	// The push channel is one-directional; reads only detect disconnects.
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
