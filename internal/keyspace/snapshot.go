package keyspace

import "time"

// TypedValue lets callers outside the package (the snapshot codec and the
// journal rewriter) build or inspect typed values without reaching into
// the closed kind/value sum directly; Kind selects which field is used.
type TypedValue struct {
	Kind string // "string", "list", "set", "zset"
	Str  []byte
	List [][]byte
	Set  [][]byte
	ZSet []ScoreMember
}

// SnapshotEntry is one (key, typed value, optional absolute deadline)
// tuple as produced by Snapshot and consumed by LoadEntry.
type SnapshotEntry struct {
	Key      string
	Value    TypedValue
	HasTTL   bool
	Deadline time.Time
}

func entryToTyped(e *entry) TypedValue {
	switch e.val.kind {
	case kindString:
		return TypedValue{Kind: "string", Str: e.val.str}
	case kindList:
		return TypedValue{Kind: "list", List: e.val.list}
	case kindSet:
		return TypedValue{Kind: "set", Set: toBytes(e.val.set)}
	case kindZSet:
		sms := make([]ScoreMember, len(e.val.zset.order))
		for i, zm := range e.val.zset.order {
			sms[i] = ScoreMember{Score: zm.score, Member: []byte(zm.member)}
		}
		return TypedValue{Kind: "zset", ZSet: sms}
	default:
		return TypedValue{}
	}
}

func typedToValue(tv TypedValue) value {
	switch tv.Kind {
	case "string":
		return value{kind: kindString, str: tv.Str}
	case "list":
		return value{kind: kindList, list: tv.List}
	case "set":
		s := newFerroSet()
		for _, m := range tv.Set {
			s.add(string(m))
		}
		return value{kind: kindSet, set: s}
	case "zset":
		z := newZSet()
		for _, sm := range tv.ZSet {
			z.add(string(sm.Member), sm.Score)
		}
		return value{kind: kindZSet, zset: z}
	default:
		return value{}
	}
}

// Snapshot produces a consistent copy of every live (non-expired) entry,
// for the snapshot codec to serialize.
func (k *Keyspace) Snapshot() []SnapshotEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := nowFunc()
	out := make([]SnapshotEntry, 0, len(k.data))
	for key, e := range k.data {
		if e.expired(now) {
			delete(k.data, key)
			continue
		}
		out = append(out, SnapshotEntry{
			Key:      key,
			Value:    entryToTyped(e),
			HasTTL:   e.hasTTL,
			Deadline: e.deadline,
		})
	}
	return out
}

// LoadEntry installs key with val and an optional remaining TTL in
// seconds, bypassing journal writing. Used by snapshot restore and by
// LOADed entries with remaining_seconds == 0 should not be passed here —
// the caller is responsible for dropping already-expired entries first.
func (k *Keyspace) LoadEntry(key string, val TypedValue, remainingSeconds *int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := &entry{val: typedToValue(val)}
	if remainingSeconds != nil {
		e.hasTTL = true
		e.deadline = nowFunc().Add(time.Duration(*remainingSeconds) * time.Second)
	}
	k.data[key] = e
}

// GetAllData returns the live keyspace, each entry with HasTTL and its
// absolute Deadline (the same entries Snapshot returns), used by the
// journal rewriter to emit a minimal equivalent command stream.
func (k *Keyspace) GetAllData() []SnapshotEntry {
	return k.Snapshot()
}
