package aof

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/zuhaib786/FerroDB/internal/keyspace"
)

func TestReplayMissingFileReturnsZero(t *testing.T) {
	n, err := Replay(filepath.Join(t.TempDir(), "nope.aof"), func(args [][]byte) error { return nil })
	if err != nil || n != 0 {
		t.Fatalf("Replay(missing) = %d, %v, want 0, nil", n, err)
	}
}

func TestWriterEnqueueThenReplayRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := NewWriter(path, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	w.Enqueue(encodeCommand("SET", "a", "1"))
	w.Enqueue(encodeCommand("SET", "b", "2"))
	w.Enqueue(encodeCommand("DEL", "a"))

	time.Sleep(50 * time.Millisecond)
	cancel()
	w.Wait()

	var replayed [][]string
	n, err := Replay(path, func(args [][]byte) error {
		strs := make([]string, len(args))
		for i, a := range args {
			strs[i] = string(a)
		}
		replayed = append(replayed, strs)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("replayed %d records, want 3", n)
	}
	want := [][]string{{"SET", "a", "1"}, {"SET", "b", "2"}, {"DEL", "a"}}
	for i, w := range want {
		if len(replayed[i]) != len(w) {
			t.Fatalf("record %d = %v, want %v", i, replayed[i], w)
		}
		for j := range w {
			if replayed[i][j] != w[j] {
				t.Fatalf("record %d = %v, want %v", i, replayed[i], w)
			}
		}
	}
}

func TestWriterDroppedCounterIncrementsWhenQueueFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := NewWriter(path, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < enqueueBuffer+10; i++ {
		w.Enqueue(encodeCommand("SET", "k", strconv.Itoa(i)))
	}
	if w.Dropped() == 0 {
		t.Fatalf("expected some drops once the handoff buffer overflows")
	}
}

// replayIntoKeyspace mimics the dispatcher's mutation path closely enough
// to exercise Replay/Rewrite round-tripping without importing the command
// dispatcher (which itself imports this package).
func replayIntoKeyspace(t *testing.T, k *keyspace.Keyspace, args []string) {
	t.Helper()
	switch args[0] {
	case "SET":
		k.Set(args[1], []byte(args[2]))
	case "SETEX":
		secs, _ := strconv.ParseInt(args[2], 10, 64)
		k.SetWithTTL(args[1], []byte(args[3]), secs)
	case "RPUSH":
		vals := make([][]byte, len(args)-2)
		for i, a := range args[2:] {
			vals[i] = []byte(a)
		}
		if _, err := k.RPush(args[1], vals...); err != nil {
			t.Fatal(err)
		}
	case "SADD":
		vals := make([][]byte, len(args)-2)
		for i, a := range args[2:] {
			vals[i] = []byte(a)
		}
		k.SAdd(args[1], vals...)
	case "ZADD":
		pairs := make([]keyspace.ScoreMember, 0, (len(args)-2)/2)
		for i := 2; i+1 < len(args); i += 2 {
			score, _ := strconv.ParseFloat(args[i], 64)
			pairs = append(pairs, keyspace.ScoreMember{Score: score, Member: []byte(args[i+1])})
		}
		if _, err := k.ZAdd(args[1], pairs...); err != nil {
			t.Fatal(err)
		}
	case "EXPIRE":
		secs, _ := strconv.ParseInt(args[2], 10, 64)
		k.Expire(args[1], secs)
	default:
		t.Fatalf("unhandled replay command %v", args)
	}
}

func TestRewriteProducesReplayableEquivalentStream(t *testing.T) {
	src := keyspace.New()
	src.Set("str", []byte("hello"))
	src.SetWithTTL("strttl", []byte("bye"), 100)
	src.RPush("list", []byte("a"), []byte("b"), []byte("c"))
	src.SAdd("set", []byte("x"), []byte("y"))
	src.ZAdd("zset", keyspace.ScoreMember{Score: 1, Member: []byte("m1")}, keyspace.ScoreMember{Score: 2, Member: []byte("m2")})

	path := filepath.Join(t.TempDir(), "appendonly.aof")
	entries := src.GetAllData()
	if _, err := Rewrite(path, entries, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("rewritten file missing: %v", err)
	}

	dst := keyspace.New()
	n, err := Replay(path, func(args [][]byte) error {
		strs := make([]string, len(args))
		for i, a := range args {
			strs[i] = string(a)
		}
		replayIntoKeyspace(t, dst, strs)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatalf("expected at least one replayed command")
	}

	if v, ok, err := dst.Get("str"); err != nil || !ok || string(v) != "hello" {
		t.Fatalf("str = %q %v %v", v, ok, err)
	}
	if ttl := dst.TTL("strttl"); ttl <= 0 {
		t.Fatalf("strttl should carry a positive TTL after rewrite, got %d", ttl)
	}
	gotList, err := dst.LRange("list", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotList) != 3 || string(gotList[0]) != "a" || string(gotList[2]) != "c" {
		t.Fatalf("list = %v", gotList)
	}
	if dst.Exists("set") != 1 {
		t.Fatalf("set key missing after rewrite round trip")
	}
	card, err := dst.ZCard("zset")
	if err != nil || card != 2 {
		t.Fatalf("zset cardinality = %d, %v, want 2", card, err)
	}
}

func TestRewriteWithWriterAppendsConcurrentDelta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appendonly.aof")
	w, err := NewWriter(path, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	entries := []keyspace.SnapshotEntry{
		{Key: "k1", Value: keyspace.TypedValue{Kind: "string", Str: []byte("v1")}},
	}

	capture := w.BeginCapture()
	if !w.flush([][]byte{encodeCommand("SET", "k2", "v2")}) {
		t.Fatal("flush of concurrent write failed")
	}

	if _, err := Rewrite(path, entries, nil); err != nil {
		t.Fatal(err)
	}
	delta := w.EndCapture(capture)
	if len(delta) != 1 {
		t.Fatalf("expected 1 captured record, got %d", len(delta))
	}
	if err := appendDelta(path, delta); err != nil {
		t.Fatal(err)
	}

	var cmds [][]string
	_, err = Replay(path, func(args [][]byte) error {
		strs := make([]string, len(args))
		for i, a := range args {
			strs[i] = string(a)
		}
		cmds = append(cmds, strs)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	last := cmds[len(cmds)-1]
	if last[0] != "SET" || last[1] != "k2" || last[2] != "v2" {
		t.Fatalf("expected delta command appended last, got %v", cmds)
	}
}
