// Package dispatch implements FerroDB's command dispatcher (§4.G): a pure
// routing layer from a decoded RESP array to a reply, validating arity and
// argument types, enforcing the subscribed-mode restriction, deciding what
// gets logged to the command journal before it mutates the store, and
// producing the error taxonomy of §7.
//
// Dispatch itself never touches a socket or a file directly — it is handed
// a Server (the shared B/D/F dependencies) and a ClientState (the
// per-connection subscription table), and returns the reply frame(s) for
// the caller to encode and write.
package dispatch

import (
	"strconv"
	"strings"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/zuhaib786/FerroDB/internal/aof"
	"github.com/zuhaib786/FerroDB/internal/audit"
	"github.com/zuhaib786/FerroDB/internal/keyspace"
	"github.com/zuhaib786/FerroDB/internal/pubsub"
	"github.com/zuhaib786/FerroDB/internal/resp"
)

// jobDebounce is how long a completed BGSAVE/BGREWRITEAOF suppresses a
// repeat of the same job, per SPEC_FULL.md §4.F's debounced-background-
// job-triggers expansion.
const jobDebounce = 2 * time.Second

// Server holds the shared dependencies a dispatched command may touch:
// the keyspace (B), the journal writer (D), the pubsub hub (F), and the
// bookkeeping for the admin-surface SAVE/BGSAVE/BGREWRITEAOF/LASTSAVE
// commands.
type Server struct {
	KS     *keyspace.Keyspace
	Writer *aof.Writer
	Hub    *pubsub.Hub
	Audit  *audit.Logger

	SnapshotPath string
	JournalPath  string

	mu       sync.Mutex
	lastSave time.Time

	jobs cache.Cache[string, bool]
}

// NewServer builds a Server ready to have Dispatch called against it.
func NewServer(ks *keyspace.Keyspace, w *aof.Writer, hub *pubsub.Hub, auditLogger *audit.Logger, snapshotPath, journalPath string) *Server {
	return &Server{
		KS:           ks,
		Writer:       w,
		Hub:          hub,
		Audit:        auditLogger,
		SnapshotPath: snapshotPath,
		JournalPath:  journalPath,
		jobs:         cache.NewCache[string, bool]().WithTTL(jobDebounce).WithMaxKeys(4),
	}
}

// ClientState is one connection's dispatch-relevant state: its pub/sub
// subscription table. Lifetime equals the connection (§3).
type ClientState struct {
	Subs *pubsub.ClientSubs
}

func NewClientState(hub *pubsub.Hub) *ClientState {
	return &ClientState{Subs: pubsub.NewClientSubs(hub)}
}

// Subscribed reports whether this client currently has any active
// subscription, which gates every command but SUBSCRIBE/UNSUBSCRIBE/PING/
// QUIT (§4.F's subscribed-mode restriction).
func (c *ClientState) Subscribed() bool { return c.Subs.Count() > 0 }

// mutatingCommands is the exact, closed set from spec.md §6: any extension
// to it must be made here, nowhere else.
var mutatingCommands = map[string]bool{
	"SET": true, "DEL": true, "EXPIRE": true, "PERSIST": true, "SETEX": true,
	"MSET": true, "LPUSH": true, "RPUSH": true, "LPOP": true, "RPOP": true,
	"SADD": true, "SREM": true, "ZADD": true, "ZREM": true,
}

// allowedWhileSubscribed is the fixed exception list to the subscribed-
// mode restriction (§4.F).
var allowedWhileSubscribed = map[string]bool{
	"SUBSCRIBE": true, "UNSUBSCRIBE": true, "PING": true, "QUIT": true,
}

type handlerFunc func(srv *Server, c *ClientState, args [][]byte) []resp.Value

// single adapts a handler that always produces exactly one reply (the
// common case) to the multi-reply shape SUBSCRIBE/UNSUBSCRIBE need.
func single(fn func(srv *Server, c *ClientState, args [][]byte) resp.Value) handlerFunc {
	return func(srv *Server, c *ClientState, args [][]byte) []resp.Value {
		return []resp.Value{fn(srv, c, args)}
	}
}

var commandTable = map[string]handlerFunc{
	"PING": single(cmdPing),

	"SET":   single(cmdSet),
	"SETEX": single(cmdSetEx),
	"GET":   single(cmdGet),
	"MSET":  single(cmdMSet),
	"MGET":  single(cmdMGet),

	"EXISTS":  single(cmdExists),
	"DEL":     single(cmdDel),
	"EXPIRE":  single(cmdExpire),
	"TTL":     single(cmdTTL),
	"PERSIST": single(cmdPersist),
	"TYPE":    single(cmdType),

	"LPUSH":  single(cmdLPush),
	"RPUSH":  single(cmdRPush),
	"LPOP":   single(cmdLPop),
	"RPOP":   single(cmdRPop),
	"LLEN":   single(cmdLLen),
	"LRANGE": single(cmdLRange),

	"SADD":      single(cmdSAdd),
	"SREM":      single(cmdSRem),
	"SMEMBERS":  single(cmdSMembers),
	"SISMEMBER": single(cmdSIsMember),
	"SCARD":     single(cmdSCard),
	"SINTER":    single(cmdSInter),
	"SUNION":    single(cmdSUnion),
	"SDIFF":     single(cmdSDiff),

	"ZADD":   single(cmdZAdd),
	"ZREM":   single(cmdZRem),
	"ZSCORE": single(cmdZScore),
	"ZRANGE": single(cmdZRange),
	"ZRANK":  single(cmdZRank),
	"ZCARD":  single(cmdZCard),

	"DBSIZE":       single(cmdDBSize),
	"SAVE":         single(cmdSave),
	"BGSAVE":       single(cmdBGSave),
	"LASTSAVE":     single(cmdLastSave),
	"BGREWRITEAOF": single(cmdBGRewriteAOF),

	"SUBSCRIBE":   cmdSubscribe,
	"UNSUBSCRIBE": cmdUnsubscribe,
	"PUBLISH":     single(cmdPublish),
}

// Dispatch validates msg as a well-formed command array, enforces the
// subscribed-mode restriction, logs mutating commands to the journal
// (unless suppressLog — set during startup replay, per §4.E), and routes
// to the named handler. It never panics on malformed input.
func Dispatch(srv *Server, c *ClientState, suppressLog bool, msg resp.Value) []resp.Value {
	args, err := aof.ToArgs(msg)
	if err != nil || len(args) == 0 {
		return []resp.Value{resp.ErrFmt("parse error: expected an array of bulk strings")}
	}

	rawName := string(args[0])
	name := strings.ToUpper(rawName)
	rest := args[1:]

	if c.Subscribed() && !allowedWhileSubscribed[name] {
		return []resp.Value{resp.Error("ERR only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT are allowed in this context")}
	}

	handler, ok := commandTable[name]
	if !ok {
		return []resp.Value{resp.ErrFmt("unknown command %s", rawName)}
	}

	if !suppressLog && mutatingCommands[name] && srv.Writer != nil {
		srv.Writer.Enqueue(resp.Encode(msg))
	}

	return handler(srv, c, rest)
}

func arityErr(name string) resp.Value {
	return resp.ErrFmt("wrong number of arguments for '%s' command", strings.ToLower(name))
}

func notIntErr() resp.Value {
	return resp.ErrFmt("value is not an integer or out of range")
}

func notFloatErr() resp.Value {
	return resp.ErrFmt("value is not a valid float")
}

func errorReply(err error) resp.Value {
	if err == keyspace.ErrWrongType {
		return resp.WrongType()
	}
	return resp.ErrFmt("%s", err.Error())
}

func parseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

func parseFloat(b []byte) (float64, bool) {
	f, err := strconv.ParseFloat(string(b), 64)
	return f, err == nil
}

func toStrings(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

func bulkSlice(vals [][]byte) []resp.Value {
	out := make([]resp.Value, len(vals))
	for i, v := range vals {
		out[i] = resp.Bulk(v)
	}
	return out
}
