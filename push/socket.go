// Package push implements the client side of the real-time status channel:
// a websocket connection whose messages are fanned out to per-event
// subscribers.
package push

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"readtrack/models"
)

// Socket is a live connection to the push channel. One socket serves one
// conversation; reconnecting after a conversation switch means dialing
// again.
type Socket struct {
	conn *websocket.Conn

	mu       sync.Mutex
	handlers map[string]map[string]func(payload []byte) // event -> subscriber id -> handler
	closed   bool

	done chan struct{}
}

// Dial connects to the push channel at a ws:// or wss:// URL, e.g.
// "ws://localhost:8080/ws?conversation_id=1", and starts reading.
func Dial(ctx context.Context, url string) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	s := &Socket{
		conn:     conn,
		handlers: make(map[string]map[string]func(payload []byte)),
		done:     make(chan struct{}),
	}
	go s.readPump()
	return s, nil
}

// Subscribe registers a handler for one event name and returns a function
// that removes it. Handlers run on the socket's read goroutine and receive
// the raw JSON payload.
func (s *Socket) Subscribe(event string, handler func(payload []byte)) (unsubscribe func()) {
	id := uuid.NewString()

	s.mu.Lock()
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[string]func(payload []byte))
	}
	s.handlers[event][id] = handler
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		if subs, ok := s.handlers[event]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(s.handlers, event)
			}
		}
		s.mu.Unlock()
	}
}

func (s *Socket) readPump() {
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.mu.Lock()
				closed := s.closed
				s.mu.Unlock()
				if !closed {
					log.Printf("push: connection error: %v", err)
				}
			}
			return
		}

		var msg models.RawSocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.dispatch(msg.Type, msg.Payload)
	}
}

func (s *Socket) dispatch(event string, payload []byte) {
	s.mu.Lock()
	subs := make([]func([]byte), 0, len(s.handlers[event]))
	for _, h := range s.handlers[event] {
		subs = append(subs, h)
	}
	s.mu.Unlock()

	for _, h := range subs {
		h(payload)
	}
}

// Done is closed when the read loop exits, whether by Close or by a
// connection failure.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Close shuts the connection down and stops the read loop.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}
