package models

import "time"

// Delivery status tokens. The push channel may carry other tokens;
// consumers only interpret these four.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// EventMessageStatus is the push event name for delivery-status updates.
const EventMessageStatus = "messageStatusUpdate"

// DeliveryStatus is the delivery state of one message. Absent fields stay
// nil/empty; updates merge field-wise rather than replacing the record.
type DeliveryStatus struct {
	Status      string     `json:"status"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ReadBy      []int64    `json:"readBy,omitempty"`
}

// StatusEvent is the payload of a messageStatusUpdate push event.
type StatusEvent struct {
	ConversationID int64 `json:"conversationId"`
	MessageID      int64 `json:"messageId"`
	DeliveryStatus
}

// ReadReceipt records that one user read one message.
type ReadReceipt struct {
	UserID int64     `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}
