package receipts

import (
	"context"
	"sync"
)

// ViewedTracker issues mark-as-read calls for messages as they are viewed,
// at most once per message id for the tracker's lifetime. Visibility
// callbacks fire every time a message scrolls into view; this is the layer
// that keeps repeats off the network.
type ViewedTracker struct {
	client  *Client
	enabled bool

	mu     sync.Mutex
	viewed map[int64]struct{}
}

// NewViewedTracker wraps a client. With enabled=false the tracker is inert:
// no state, no requests.
func NewViewedTracker(client *Client, enabled bool) *ViewedTracker {
	return &ViewedTracker{
		client:  client,
		enabled: enabled,
		viewed:  make(map[int64]struct{}),
	}
}

// MarkAsViewed marks one message read unless it was already viewed this
// session.
func (t *ViewedTracker) MarkAsViewed(ctx context.Context, messageID int64) {
	t.MarkMultipleAsViewed(ctx, messageID)
}

// MarkMultipleAsViewed marks each not-yet-viewed message read, once per id
// even when the batch itself contains duplicates.
func (t *ViewedTracker) MarkMultipleAsViewed(ctx context.Context, messageIDs ...int64) {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	fresh := make([]int64, 0, len(messageIDs))
	for _, id := range messageIDs {
		if _, seen := t.viewed[id]; seen {
			continue
		}
		t.viewed[id] = struct{}{}
		fresh = append(fresh, id)
	}
	t.mu.Unlock()

	for _, id := range fresh {
		t.client.MarkMessageAsRead(ctx, id)
	}
}
