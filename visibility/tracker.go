// Package visibility maps viewport-intersection events on UI elements back
// to message ids. The platform primitive that watches elements is injected
// as an Observer, so the tracker runs against a fake in tests and against
// whatever rendering surface hosts the chat in production.
package visibility

import "sync"

// DefaultThreshold is the visible fraction at which an element counts as in
// view.
const DefaultThreshold = 0.5

// Element identifies an observed UI element. Compared by identity; callers
// pass pointers or other comparable handles.
type Element interface{}

// Entry is one observation reported by the platform observer.
type Entry struct {
	Target       Element
	Intersecting bool
	Ratio        float64
}

// Observer is the platform intersection primitive.
type Observer interface {
	Observe(el Element)
	Unobserve(el Element)
	Disconnect()
}

// Options configures the platform observer. A zero Threshold means
// DefaultThreshold; other fields pass through as given.
type Options struct {
	Threshold  float64
	RootMargin string
}

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

// NewObserver builds a platform observer that reports entries to callback.
type NewObserver func(callback func(entries []Entry), opts Options) Observer

// Tracker watches registered elements and reports the message id of each one
// that crosses into view. Exit events are ignored; consumers only care about
// the first moment a message becomes visible.
type Tracker struct {
	observer  Observer
	onVisible func(messageID int64)

	mu       sync.Mutex
	elements map[Element]int64
}

// NewTracker builds a tracker. onVisible is invoked once per intersecting
// entry whose element is registered; it runs on the observer's callback
// goroutine.
func NewTracker(newObserver NewObserver, onVisible func(messageID int64), opts Options) *Tracker {
	t := &Tracker{
		onVisible: onVisible,
		elements:  make(map[Element]int64),
	}
	t.observer = newObserver(t.handleEntries, opts.withDefaults())
	return t
}

// Observe registers an element as displaying the given message. No-op on a
// nil element.
func (t *Tracker) Observe(el Element, messageID int64) {
	if el == nil {
		return
	}
	t.mu.Lock()
	t.elements[el] = messageID
	t.mu.Unlock()
	t.observer.Observe(el)
}

// Unobserve stops watching an element and forgets its message id.
func (t *Tracker) Unobserve(el Element) {
	if el == nil {
		return
	}
	t.observer.Unobserve(el)
	t.mu.Lock()
	delete(t.elements, el)
	t.mu.Unlock()
}

func (t *Tracker) handleEntries(entries []Entry) {
	for _, entry := range entries {
		if !entry.Intersecting {
			continue
		}
		t.mu.Lock()
		messageID, ok := t.elements[entry.Target]
		t.mu.Unlock()
		if ok {
			t.onVisible(messageID)
		}
	}
}

// Close disconnects the platform observer, releasing every registration.
func (t *Tracker) Close() {
	t.observer.Disconnect()
	t.mu.Lock()
	t.elements = make(map[Element]int64)
	t.mu.Unlock()
}
