package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zuhaib786/FerroDB/internal/aof"
	"github.com/zuhaib786/FerroDB/internal/keyspace"
	"github.com/zuhaib786/FerroDB/internal/pubsub"
	"github.com/zuhaib786/FerroDB/internal/resp"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	return NewServer(keyspace.New(), nil, pubsub.NewHub(), nil,
		filepath.Join(dir, "dump.rdb"), filepath.Join(dir, "appendonly.aof"))
}

func cmd(parts ...string) resp.Value {
	elems := make([]resp.Value, len(parts))
	for i, p := range parts {
		elems[i] = resp.BulkString(p)
	}
	return resp.Array(elems)
}

func one(t *testing.T, replies []resp.Value) resp.Value {
	t.Helper()
	if len(replies) != 1 {
		t.Fatalf("expected exactly one reply, got %d: %v", len(replies), replies)
	}
	return replies[0]
}

func TestPingSetGet(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)

	got := one(t, Dispatch(srv, c, false, cmd("PING")))
	if got.Kind != resp.KindSimpleString || got.Str != "PONG" {
		t.Fatalf("PING = %+v", got)
	}

	got = one(t, Dispatch(srv, c, false, cmd("SET", "foo", "bar")))
	if got.Str != "OK" {
		t.Fatalf("SET = %+v", got)
	}

	got = one(t, Dispatch(srv, c, false, cmd("GET", "foo")))
	if string(got.Bulk) != "bar" {
		t.Fatalf("GET = %+v", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)
	got := one(t, Dispatch(srv, c, false, cmd("FROBNICATE", "x")))
	if got.Kind != resp.KindError {
		t.Fatalf("expected error reply, got %+v", got)
	}
}

func TestArityError(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)
	got := one(t, Dispatch(srv, c, false, cmd("SET", "onlykey")))
	if got.Kind != resp.KindError {
		t.Fatalf("expected arity error, got %+v", got)
	}
}

func TestWrongTypeError(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)
	Dispatch(srv, c, false, cmd("SET", "s", "hello"))
	got := one(t, Dispatch(srv, c, false, cmd("LPUSH", "s", "x")))
	if got.Kind != resp.KindError || got.Str[:9] != "WRONGTYPE" {
		t.Fatalf("expected WRONGTYPE error, got %+v", got)
	}
}

func TestListRotationScenario(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)
	got := one(t, Dispatch(srv, c, false, cmd("RPUSH", "l", "a", "b", "c", "d", "e")))
	if got.Int != 5 {
		t.Fatalf("RPUSH = %+v", got)
	}
	got = one(t, Dispatch(srv, c, false, cmd("LRANGE", "l", "1", "3")))
	if len(got.Array) != 3 || string(got.Array[0].Bulk) != "b" {
		t.Fatalf("LRANGE = %+v", got)
	}
	got = one(t, Dispatch(srv, c, false, cmd("LPOP", "l", "2")))
	if len(got.Array) != 2 || string(got.Array[0].Bulk) != "a" {
		t.Fatalf("LPOP = %+v", got)
	}
}

func TestSortedSetRankWithScores(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)
	Dispatch(srv, c, false, cmd("ZADD", "lb", "10", "alice", "10", "bob", "20", "carol"))
	got := one(t, Dispatch(srv, c, false, cmd("ZRANGE", "lb", "0", "-1", "WITHSCORES")))
	if len(got.Array) != 6 {
		t.Fatalf("ZRANGE WITHSCORES = %+v", got)
	}
	want := []string{"alice", "10", "bob", "10", "carol", "20"}
	for i, w := range want {
		if string(got.Array[i].Bulk) != w {
			t.Fatalf("element %d = %q, want %q", i, got.Array[i].Bulk, w)
		}
	}
	got = one(t, Dispatch(srv, c, false, cmd("ZRANK", "lb", "bob")))
	if got.Int != 1 {
		t.Fatalf("ZRANK = %+v", got)
	}
}

func TestSubscribedModeRestriction(t *testing.T) {
	srv := newTestServer(t)
	a := NewClientState(srv.Hub)

	replies := Dispatch(srv, a, false, cmd("SUBSCRIBE", "ch"))
	if len(replies) != 1 || string(replies[0].Array[0].Bulk) != "subscribe" || replies[0].Array[2].Int != 1 {
		t.Fatalf("SUBSCRIBE reply = %+v", replies)
	}

	got := one(t, Dispatch(srv, a, false, cmd("GET", "k")))
	if got.Kind != resp.KindError {
		t.Fatalf("expected subscribed-mode restriction error, got %+v", got)
	}

	b := NewClientState(srv.Hub)
	got = one(t, Dispatch(srv, b, false, cmd("PUBLISH", "ch", "hi")))
	if got.Int != 1 {
		t.Fatalf("PUBLISH = %+v", got)
	}
	msg, ok := a.Subs.TryRecv()
	if !ok || msg.Channel != "ch" || string(msg.Payload) != "hi" {
		t.Fatalf("subscriber did not receive message: %+v %v", msg, ok)
	}
}

func TestMutatingCommandsAreJournaled(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "appendonly.aof")
	srv := NewServer(keyspace.New(), nil, pubsub.NewHub(), nil, filepath.Join(dir, "dump.rdb"), journalPath)

	w, err := aof.NewWriter(journalPath, 5*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	srv.Writer = w
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	c := NewClientState(srv.Hub)
	Dispatch(srv, c, false, cmd("SET", "a", "1"))
	Dispatch(srv, c, false, cmd("GET", "a")) // not mutating, must not be journaled

	time.Sleep(30 * time.Millisecond)
	cancel()
	w.Wait()

	var recorded [][]string
	n, err := aof.Replay(journalPath, func(args [][]byte) error {
		strs := make([]string, len(args))
		for i, a := range args {
			strs[i] = string(a)
		}
		recorded = append(recorded, strs)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 journaled command (SET, not GET), got %d: %v", n, recorded)
	}
	if recorded[0][0] != "SET" {
		t.Fatalf("journaled command = %v, want SET", recorded[0])
	}
}

func TestSuppressLogWithoutWriterStillApplies(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)
	// No writer configured; suppressLog path must not attempt to use one.
	got := one(t, Dispatch(srv, c, true, cmd("SET", "a", "1")))
	if got.Str != "OK" {
		t.Fatalf("SET under suppressLog = %+v", got)
	}
}

func TestSaveAndLastSave(t *testing.T) {
	srv := newTestServer(t)
	c := NewClientState(srv.Hub)
	Dispatch(srv, c, false, cmd("SET", "k", "v"))

	got := one(t, Dispatch(srv, c, false, cmd("SAVE")))
	if got.Str != "OK" {
		t.Fatalf("SAVE = %+v", got)
	}
	if _, err := os.Stat(srv.SnapshotPath); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
	got = one(t, Dispatch(srv, c, false, cmd("LASTSAVE")))
	if got.Int == 0 {
		t.Fatalf("LASTSAVE should be non-zero after SAVE, got %+v", got)
	}
}
