package models

import "encoding/json"

// SocketMessage is the format for real-time messages
type SocketMessage struct {
	Type    string      `json:"type"` // event name, e.g. "messageStatusUpdate"
	Payload interface{} `json:"payload"`
}

// RawSocketMessage is the receive-side counterpart of SocketMessage: the
// payload stays undecoded until a subscriber for the event name claims it.
type RawSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
