package dispatch

import (
	"github.com/zuhaib786/FerroDB/internal/pubsub"
	"github.com/zuhaib786/FerroDB/internal/resp"
)

// EncodeMessage frames a delivered pub/sub message the way a subscribed
// connection pushes it unsolicited (law 12, scenario S6): a 3-element
// array ["message", channel, payload]. The connection loop polls
// ClientState.Subs.TryRecv and encodes whatever it gets with this.
func EncodeMessage(msg pubsub.Message) resp.Value {
	return resp.Array([]resp.Value{
		resp.BulkString("message"),
		resp.BulkString(msg.Channel),
		resp.Bulk(msg.Payload),
	})
}

// cmdSubscribe emits one confirmation frame per channel (§4.F, scenario
// S6), not a single aggregate reply — real subscribers expect to see each
// subscription acknowledged independently as it happens.
func cmdSubscribe(srv *Server, c *ClientState, args [][]byte) []resp.Value {
	if len(args) < 1 {
		return []resp.Value{arityErr("SUBSCRIBE")}
	}
	out := make([]resp.Value, 0, len(args))
	for _, ch := range args {
		count := c.Subs.Add(string(ch))
		out = append(out, confirmation("subscribe", string(ch), count))
	}
	return out
}

// cmdUnsubscribe drops the named channels, or every currently-subscribed
// channel if none are named (matching the common REPL idiom of bare
// UNSUBSCRIBE meaning "all").
func cmdUnsubscribe(srv *Server, c *ClientState, args [][]byte) []resp.Value {
	channels := toStrings(args)
	if len(channels) == 0 {
		channels = c.Subs.Channels()
	}
	if len(channels) == 0 {
		return []resp.Value{resp.Array([]resp.Value{
			resp.BulkString("unsubscribe"), resp.Null(), resp.Integer(0),
		})}
	}
	out := make([]resp.Value, 0, len(channels))
	for _, ch := range channels {
		count := c.Subs.Remove(ch)
		out = append(out, confirmation("unsubscribe", ch, count))
	}
	return out
}

func confirmation(kind, channel string, count int) resp.Value {
	return resp.Array([]resp.Value{
		resp.BulkString(kind),
		resp.BulkString(channel),
		resp.Integer(int64(count)),
	})
}

func cmdPublish(srv *Server, c *ClientState, args [][]byte) resp.Value {
	if len(args) != 2 {
		return arityErr("PUBLISH")
	}
	n := srv.Hub.Publish(string(args[0]), args[1])
	return resp.Integer(int64(n))
}
