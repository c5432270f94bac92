package keyspace

// ScoreMember is one (score, member) pair, as passed to ZAdd and returned
// by ZRange with scores.
type ScoreMember struct {
	Score  float64
	Member []byte
}

// ZAdd adds or updates each (score, member) pair at key, creating the
// sorted set if absent. Returns the count of members that were newly
// added (score updates to existing members do not count).
func (k *Keyspace) ZAdd(key string, pairs ...ScoreMember) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		e = &entry{val: value{kind: kindZSet, zset: newZSet()}}
		k.data[key] = e
	} else if e.val.kind != kindZSet {
		return 0, ErrWrongType
	}
	var added int64
	for _, p := range pairs {
		if e.val.zset.add(string(p.Member), p.Score) {
			added++
		}
	}
	return added, nil
}

// ZRem removes members from the sorted set at key. Returns the count
// removed.
func (k *Keyspace) ZRem(key string, members ...[]byte) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return 0, nil
	}
	if e.val.kind != kindZSet {
		return 0, ErrWrongType
	}
	var removed int64
	for _, m := range members {
		if e.val.zset.remove(string(m)) {
			removed++
		}
	}
	k.deleteIfEmptyLocked(key, e)
	return removed, nil
}

// ZScore returns member's score, or (0, false) if absent.
func (k *Keyspace) ZScore(key string, member []byte) (float64, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return 0, false, nil
	}
	if e.val.kind != kindZSet {
		return 0, false, ErrWrongType
	}
	s, ok := e.val.zset.score(string(member))
	return s, ok, nil
}

// ZRank returns member's zero-based rank in ascending (score, member)
// order, or (0, false) if absent.
func (k *Keyspace) ZRank(key string, member []byte) (int64, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return 0, false, nil
	}
	if e.val.kind != kindZSet {
		return 0, false, ErrWrongType
	}
	r := e.val.zset.rank(string(member))
	if r < 0 {
		return 0, false, nil
	}
	return int64(r), true, nil
}

// ZCard returns the cardinality of the sorted set at key.
func (k *Keyspace) ZCard(key string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return 0, nil
	}
	if e.val.kind != kindZSet {
		return 0, ErrWrongType
	}
	return int64(e.val.zset.card()), nil
}

// ZRange returns the members between the normalized start and stop
// indices, ascending by (score, member).
func (k *Keyspace) ZRange(key string, start, stop int64) ([]ScoreMember, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return nil, nil
	}
	if e.val.kind != kindZSet {
		return nil, ErrWrongType
	}
	n := e.val.zset.card()
	s, stp := normalizeRange(int(start), int(stop), n)
	slice := e.val.zset.rangeSlice(s, stp)
	out := make([]ScoreMember, len(slice))
	for i, zm := range slice {
		out[i] = ScoreMember{Score: zm.score, Member: []byte(zm.member)}
	}
	return out, nil
}
