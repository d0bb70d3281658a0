// internal/app/realtime/typing/typing.go
package typing

import (
	"sync"
	"time"
)

// DefaultQuiescence is how long a typing indicator survives without a
// refresh before it expires on its own.
const DefaultQuiescence = 3 * time.Second

type key struct {
	channel string
	userID  string
}

type entry struct {
	gen   uint64
	name  string
	timer *time.Timer
}

// Coordinator tracks who is typing in which channel (a group id or a direct
// conversation key) and guarantees exactly one "stopped" signal per typing
// episode, whether it ends by explicit stop, quiescence, or disconnect.
type Coordinator struct {
	mu      sync.Mutex
	quiet   time.Duration
	entries map[key]*entry
	onStop  func(channel, userID, name string)
}

// New builds a coordinator. onStop fires when an indicator expires without
// an explicit stop; it runs on a timer goroutine, so it must not block.
func New(quiet time.Duration, onStop func(channel, userID, name string)) *Coordinator {
	if quiet <= 0 {
		quiet = DefaultQuiescence
	}
	if onStop == nil {
		onStop = func(string, string, string) {}
	}
	return &Coordinator{
		quiet:   quiet,
		entries: make(map[key]*entry),
		onStop:  onStop,
	}
}

// Start records that the user is typing and reports whether this begins a
// new episode. Repeat calls refresh the expiry timer without re-reporting.
// The display name is kept so an expiry can tell watchers who stopped.
func (c *Coordinator) Start(channel, userID, name string) bool {
	k := key{channel, userID}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[k]; ok {
		// Bumping the generation invalidates a timer that already fired and
		// is waiting on the lock; a fresh timer carries the new generation.
		e.timer.Stop()
		e.gen++
		e.name = name
		gen := e.gen
		e.timer = time.AfterFunc(c.quiet, func() { c.expire(k, gen) })
		return false
	}

	e := &entry{name: name}
	gen := e.gen
	e.timer = time.AfterFunc(c.quiet, func() { c.expire(k, gen) })
	c.entries[k] = e
	return true
}

// Stop ends an episode explicitly. Reports whether the user was typing; the
// caller emits the stopped signal itself on true, and the expiry timer is
// disarmed so it cannot double-fire.
func (c *Coordinator) Stop(channel, userID string) bool {
	k := key{channel, userID}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(c.entries, k)
	return true
}

// SweepUser ends every episode the user has open and returns the affected
// channels. Called when a connection drops so indicators don't stick.
func (c *Coordinator) SweepUser(userID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var channels []string
	for k, e := range c.entries {
		if k.userID != userID {
			continue
		}
		e.timer.Stop()
		delete(c.entries, k)
		channels = append(channels, k.channel)
	}
	return channels
}

func (c *Coordinator) expire(k key, gen uint64) {
	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok || e.gen != gen {
		// Explicitly stopped or refreshed while we waited; not ours anymore.
		c.mu.Unlock()
		return
	}
	delete(c.entries, k)
	c.mu.Unlock()

	c.onStop(k.channel, k.userID, e.name)
}
