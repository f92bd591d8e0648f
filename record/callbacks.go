package record

import (
	"sync"
)

// Callbacks stores progress callbacks keyed by subscription id. It is meant
// to be embedded by Reader and Writer implementations.
type Callbacks struct {
	mu      sync.Mutex
	nextID  CallbackID
	entries []callbackEntry
}

type callbackEntry struct {
	id CallbackID
	cb IOCallback
}

// RegisterIOCallback subscribes cb and returns its id. Ids are never reused.
func (c *Callbacks) RegisterIOCallback(cb IOCallback) CallbackID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.entries = append(c.entries, callbackEntry{id: c.nextID, cb: cb})
	return c.nextID
}

// UnregisterIOCallback removes the subscription id and reports whether it existed.
func (c *Callbacks) UnregisterIOCallback(id CallbackID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.id == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// NumIOCallbacks returns the number of active subscriptions.
func (c *Callbacks) NumIOCallbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// NotifyIOCallbacks invokes every callback in subscription order. It returns
// Abort as soon as one callback asks for it; remaining callbacks are skipped.
func (c *Callbacks) NotifyIOCallbacks(s Stream, progress float64) Action {
	c.mu.Lock()
	entries := make([]callbackEntry, len(c.entries))
	copy(entries, c.entries)
	c.mu.Unlock()

	for _, e := range entries {
		if e.cb(s, progress) == Abort {
			return Abort
		}
	}
	return Continue
}

// ClearIOCallbacks drops every subscription.
func (c *Callbacks) ClearIOCallbacks() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
}
