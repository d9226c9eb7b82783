package status

import (
	"encoding/json"
	"log"
	"sync"

	"readtrack/models"
)

// Subscription is a push-channel handle the cache subscribes through. The
// returned function cancels the subscription. Implemented by push.Socket;
// tests supply fakes.
type Subscription interface {
	Subscribe(event string, handler func(payload []byte)) (unsubscribe func())
}

// Cache tracks the delivery status of messages in one conversation, driven
// by messageStatusUpdate push events. Entries are created lazily on the
// first event for a message id and never evicted; switching conversations
// means building a new Cache.
type Cache struct {
	conversationID int64

	mu       sync.RWMutex
	statuses map[int64]models.DeliveryStatus

	unsubscribe func()
}

// NewCache creates a cache for one conversation. If sub is non-nil the cache
// subscribes to messageStatusUpdate and applies events as they arrive; call
// Close when done so no events reach a discarded cache.
func NewCache(conversationID int64, sub Subscription) *Cache {
	c := &Cache{
		conversationID: conversationID,
		statuses:       make(map[int64]models.DeliveryStatus),
	}
	if sub != nil {
		c.unsubscribe = sub.Subscribe(models.EventMessageStatus, c.handlePayload)
	}
	return c
}

func (c *Cache) handlePayload(payload []byte) {
	var ev models.StatusEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("status: dropping malformed %s payload: %v", models.EventMessageStatus, err)
		return
	}
	c.Update(ev)
}

// Update applies one push event. Events for other conversations are
// discarded. Fields absent from the event keep their stored value; fields
// present replace it. Events are applied in delivery order, so a late stale
// event can overwrite a newer value for the same field (no sequence numbers
// on the channel).
func (c *Cache) Update(ev models.StatusEvent) {
	if ev.ConversationID != c.conversationID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.statuses[ev.MessageID]
	if ev.Status != "" {
		next.Status = ev.Status
	}
	if ev.SentAt != nil {
		next.SentAt = ev.SentAt
	}
	if ev.DeliveredAt != nil {
		next.DeliveredAt = ev.DeliveredAt
	}
	if ev.ReadAt != nil {
		next.ReadAt = ev.ReadAt
	}
	if ev.FailedAt != nil {
		next.FailedAt = ev.FailedAt
	}
	if ev.Error != nil {
		next.Error = ev.Error
	}
	if ev.ReadBy != nil {
		next.ReadBy = append([]int64(nil), ev.ReadBy...)
	}
	c.statuses[ev.MessageID] = next
}

// Get returns the stored record for a message, with ok=false when no event
// has referenced the id yet.
func (c *Cache) Get(messageID int64) (models.DeliveryStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.statuses[messageID]
	return st, ok
}

// IsRead reports whether the message has reached "read".
func (c *Cache) IsRead(messageID int64) bool {
	st, ok := c.Get(messageID)
	return ok && st.Status == models.StatusRead
}

// IsDelivered reports whether the message has reached the recipient. A read
// message is always delivered.
func (c *Cache) IsDelivered(messageID int64) bool {
	st, ok := c.Get(messageID)
	return ok && (st.Status == models.StatusDelivered || st.Status == models.StatusRead)
}

// ConversationID returns the conversation this cache is scoped to.
func (c *Cache) ConversationID() int64 {
	return c.conversationID
}

// Close cancels the push subscription. Safe to call more than once.
func (c *Cache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}
