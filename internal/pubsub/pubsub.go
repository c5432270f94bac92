// Package pubsub implements FerroDB's publish/subscribe fan-out: a
// process-wide Hub of named channels, each broadcasting to every current
// subscriber's bounded receiver, plus per-client subscription bookkeeping.
//
// The broadcaster is adapted from the teacher's game/fanout.go Fanout
// type, generalized from a synchronous direct-write-to-terminal fan-out
// into a buffered-channel broadcast per topic: RESP subscribers need
// independently-lagging receivers (a slow client must not block a
// publisher or other subscribers), which a direct write cannot provide.
package pubsub

import (
	"sync"

	"github.com/zuhaib786/FerroDB"
)

// receiverBuffer is the fixed capacity of each subscriber's channel (§5).
const receiverBuffer = 100

// Message is one published payload on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// topic is one channel's set of live receivers.
type topic struct {
	mu   sync.Mutex
	subs map[*Receiver]struct{}
}

func newTopic() *topic {
	return &topic{subs: map[*Receiver]struct{}{}}
}

func (t *topic) subscribe() *Receiver {
	r := &Receiver{ch: make(chan Message, receiverBuffer)}
	t.mu.Lock()
	t.subs[r] = struct{}{}
	t.mu.Unlock()
	return r
}

func (t *topic) unsubscribe(r *Receiver) {
	t.mu.Lock()
	delete(t.subs, r)
	t.mu.Unlock()
	close(r.ch)
}

func (t *topic) publish(msg Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for r := range t.subs {
		select {
		case r.ch <- msg:
			count++
		default:
			// Slow subscriber: drop this message for it (lagged) rather
			// than block the publisher or other subscribers.
		}
	}
	return count
}

func (t *topic) receiverCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Receiver is a single (client, channel) subscription's inbound queue.
type Receiver struct {
	ch chan Message
}

// Hub is the process-wide channel-name → topic registry.
type Hub struct {
	topics *ferrodb.SyncMap[string, *topic]
}

func NewHub() *Hub {
	return &Hub{topics: ferrodb.NewSyncMap[string, *topic]()}
}

// Subscribe returns a fresh Receiver for channel, creating the topic on
// first subscription.
func (h *Hub) Subscribe(channel string) *Receiver {
	t := h.topics.GetOrInit(channel, newTopic)
	return t.subscribe()
}

// Unsubscribe drops r from channel's topic.
func (h *Hub) Unsubscribe(channel string, r *Receiver) {
	if t, ok := h.topics.Get(channel); ok {
		t.unsubscribe(r)
	}
}

// Publish sends payload to every current subscriber of channel, returning
// the count that received it. An absent channel returns 0 without
// creating one.
func (h *Hub) Publish(channel string, payload []byte) int {
	t, ok := h.topics.Get(channel)
	if !ok {
		return 0
	}
	return t.publish(Message{Channel: channel, Payload: payload})
}

// Cleanup drops every channel whose topic currently has zero subscribers.
// Intended to be run periodically by a background task (§4.F).
func (h *Hub) Cleanup() {
	var empty []string
	h.topics.Each(func(name string, t *topic) {
		if t.receiverCount() == 0 {
			empty = append(empty, name)
		}
	})
	for _, name := range empty {
		// Re-check under the topic's own lock before deleting: a
		// subscription may have arrived between the scan above and here.
		if t, ok := h.topics.Get(name); ok && t.receiverCount() == 0 {
			h.topics.Del(name)
		}
	}
}
