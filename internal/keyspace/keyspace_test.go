package keyspace

import (
	"testing"
	"time"

	"github.com/bxcodec/faker/v4"
	"github.com/google/go-cmp/cmp"
)

func withFrozenClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = orig })
}

func TestSetGetExistsTTL(t *testing.T) {
	k := New()
	k.Set("foo", []byte("bar"))
	v, ok, err := k.Get("foo")
	if err != nil || !ok || string(v) != "bar" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if k.Exists("foo") != 1 {
		t.Fatalf("Exists should be 1")
	}
	if k.TTL("foo") != -1 {
		t.Fatalf("TTL should be -1 for no-expiry key")
	}
}

func TestSetExLazyExpiration(t *testing.T) {
	base := time.Unix(1000, 0)
	withFrozenClock(t, base)
	k := New()
	k.SetWithTTL("foo", []byte("bar"), 1)

	v, ok, err := k.Get("foo")
	if err != nil || !ok || string(v) != "bar" {
		t.Fatalf("Get before expiry = %q %v %v", v, ok, err)
	}
	ttl := k.TTL("foo")
	if ttl <= 0 || ttl > 1 {
		t.Fatalf("TTL = %d, want (0,1]", ttl)
	}

	nowFunc = func() time.Time { return base.Add(1200 * time.Millisecond) }
	v, ok, err = k.Get("foo")
	if err != nil || ok || v != nil {
		t.Fatalf("Get after expiry = %q %v %v, want absent", v, ok, err)
	}
	if k.TTL("foo") != -2 {
		t.Fatalf("TTL after expiry should be -2")
	}
	if k.Exists("foo") != 0 {
		t.Fatalf("Exists after expiry should be 0")
	}
}

func TestWrongType(t *testing.T) {
	k := New()
	k.Set("s", []byte("hello"))
	if _, err := k.LPush("s", []byte("x")); err != ErrWrongType {
		t.Fatalf("LPush on string key: err = %v, want ErrWrongType", err)
	}
	if _, _, err := k.Get("s"); err != nil {
		t.Fatalf("Get on own type should not error: %v", err)
	}
}

func TestListRotationScenario(t *testing.T) {
	k := New()
	n, err := k.RPush("l", []byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e"))
	if err != nil || n != 5 {
		t.Fatalf("RPush = %d, %v", n, err)
	}
	got, err := k.LRange("l", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]byte{[]byte("b"), []byte("c"), []byte("d")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LRange 1 3 mismatch (-want +got):\n%s", diff)
	}

	popped, ok, err := k.LPop("l", 2)
	if err != nil || !ok {
		t.Fatal(err, ok)
	}
	if diff := cmp.Diff([][]byte{[]byte("a"), []byte("b")}, popped); diff != "" {
		t.Errorf("LPop mismatch (-want +got):\n%s", diff)
	}

	got, err = k.LRange("l", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	want = [][]byte{[]byte("c"), []byte("d"), []byte("e")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LRange 0 -1 mismatch (-want +got):\n%s", diff)
	}
}

func TestLPushReversal(t *testing.T) {
	k := New()
	if _, err := k.LPush("l", []byte("v1"), []byte("v2"), []byte("v3")); err != nil {
		t.Fatal(err)
	}
	got, _ := k.LRange("l", 0, -1)
	want := [][]byte{[]byte("v3"), []byte("v2"), []byte("v1")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyContainersAreRemoved(t *testing.T) {
	k := New()
	k.RPush("l", []byte("x"))
	if _, _, err := k.LPop("l", 1); err != nil {
		t.Fatal(err)
	}
	if k.Exists("l") != 0 {
		t.Fatalf("list should be gone once emptied")
	}

	k.SAdd("s", []byte("m"))
	k.SRem("s", []byte("m"))
	if k.Exists("s") != 0 {
		t.Fatalf("set should be gone once emptied")
	}

	k.ZAdd("z", ScoreMember{Score: 1, Member: []byte("m")})
	k.ZRem("z", []byte("m"))
	if k.Exists("z") != 0 {
		t.Fatalf("zset should be gone once emptied")
	}
}

func TestSortedSetRankAndTies(t *testing.T) {
	k := New()
	n, err := k.ZAdd("lb",
		ScoreMember{Score: 10, Member: []byte("alice")},
		ScoreMember{Score: 10, Member: []byte("bob")},
		ScoreMember{Score: 20, Member: []byte("carol")},
	)
	if err != nil || n != 3 {
		t.Fatalf("ZAdd = %d, %v", n, err)
	}
	got, err := k.ZRange("lb", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"alice", "bob", "carol"}
	for i, sm := range got {
		if string(sm.Member) != wantOrder[i] {
			t.Fatalf("ZRange[%d] = %s, want %s", i, sm.Member, wantOrder[i])
		}
	}
	rank, ok, err := k.ZRank("lb", []byte("bob"))
	if err != nil || !ok || rank != 1 {
		t.Fatalf("ZRank(bob) = %d %v %v, want 1", rank, ok, err)
	}
}

func TestZAddUpdateScorePreservesCardinality(t *testing.T) {
	k := New()
	k.ZAdd("z", ScoreMember{Score: 1, Member: []byte("m")})
	n, err := k.ZAdd("z", ScoreMember{Score: 99, Member: []byte("m")})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("re-adding existing member should return 0 new, got %d", n)
	}
	card, _ := k.ZCard("z")
	if card != 1 {
		t.Fatalf("cardinality should stay 1, got %d", card)
	}
	score, ok, _ := k.ZScore("z", []byte("m"))
	if !ok || score != 99 {
		t.Fatalf("score should be updated to 99, got %v %v", score, ok)
	}
}

func TestSetOperations(t *testing.T) {
	k := New()
	k.SAdd("a", []byte("x"), []byte("y"), []byte("z"))
	k.SAdd("b", []byte("y"), []byte("z"), []byte("w"))

	inter, err := k.SInter("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	assertSetEqual(t, inter, "y", "z")

	union, err := k.SUnion("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	assertSetEqual(t, union, "x", "y", "z", "w")

	diff, err := k.SDiff("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	assertSetEqual(t, diff, "x")
}

func TestSInterAbsentFirstKeyIsEmpty(t *testing.T) {
	k := New()
	k.SAdd("b", []byte("y"))
	out, err := k.SInter("missing", "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty, got %v", out)
	}
	if k.Exists("missing") != 0 {
		t.Fatalf("SInter must not promote absent key to a value")
	}
}

func assertSetEqual(t *testing.T, got [][]byte, want ...string) {
	t.Helper()
	gotSet := map[string]bool{}
	for _, g := range got {
		gotSet[string(g)] = true
	}
	if len(gotSet) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for _, w := range want {
		if !gotSet[w] {
			t.Fatalf("missing %q in %v", w, got)
		}
	}
}

func TestRandomKeysSetGetRoundTrip(t *testing.T) {
	k := New()
	for i := 0; i < 20; i++ {
		key := faker.Word() + faker.UUIDHyphenated()
		val := []byte(faker.Sentence())
		k.Set(key, val)
		got, ok, err := k.Get(key)
		if err != nil || !ok || string(got) != string(val) {
			t.Fatalf("round trip failed for key %q", key)
		}
	}
}
