package pubsub

import "sort"

// ClientSubs is one connection's channel → receiver table, alive for the
// lifetime of that connection.
type ClientSubs struct {
	hub  *Hub
	subs map[string]*Receiver
}

func NewClientSubs(hub *Hub) *ClientSubs {
	return &ClientSubs{hub: hub, subs: map[string]*Receiver{}}
}

// Add subscribes to channel (on SUBSCRIBE), returning the subscription
// count after adding. Re-subscribing to an already-subscribed channel is a
// no-op.
func (c *ClientSubs) Add(channel string) int {
	if _, ok := c.subs[channel]; !ok {
		c.subs[channel] = c.hub.Subscribe(channel)
	}
	return len(c.subs)
}

// Remove unsubscribes from channel (on UNSUBSCRIBE), returning the
// subscription count after removing.
func (c *ClientSubs) Remove(channel string) int {
	if r, ok := c.subs[channel]; ok {
		c.hub.Unsubscribe(channel, r)
		delete(c.subs, channel)
	}
	return len(c.subs)
}

// RemoveAll drops every subscription, used when the connection closes so
// the hub's receiver counts for those channels decrement immediately.
func (c *ClientSubs) RemoveAll() {
	for channel, r := range c.subs {
		c.hub.Unsubscribe(channel, r)
		delete(c.subs, channel)
	}
}

// Count returns the number of channels currently subscribed.
func (c *ClientSubs) Count() int { return len(c.subs) }

// Channels returns the subscribed channel names, sorted for deterministic
// output (e.g. the confirmations of a bare UNSUBSCRIBE).
func (c *ClientSubs) Channels() []string {
	out := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// TryRecv polls every subscribed channel's receiver once, non-blocking.
// It returns the first available message. Lagged receivers (buffer was
// closed from under it, or producer dropped a message because the buffer
// was full) never surface as an error to the caller: a closed receiver is
// skipped (and, as a convenience, dropped from the subscription table,
// since a closed receiver only happens after explicit Unsubscribe/
// RemoveAll, so this is a defensive no-op in practice); the channel-
// capacity-based drop case is invisible here by construction — the
// publisher already decided to drop it, TryRecv simply never sees it.
func (c *ClientSubs) TryRecv() (Message, bool) {
	for _, channel := range c.Channels() {
		r := c.subs[channel]
		select {
		case msg, ok := <-r.ch:
			if !ok {
				delete(c.subs, channel)
				continue
			}
			return msg, true
		default:
		}
	}
	return Message{}, false
}
