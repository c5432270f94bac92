package keyspace

import "sort"

// zmember is one (member, score) pair in a zset's rank order.
type zmember struct {
	member string
	score  float64
}

// less orders by score ascending, ties broken by member byte order
// ascending — the spec's fixed ZRANGE/ZRANK ordering.
func (a zmember) less(b zmember) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

// zset is FerroDB's SortedSet representation. Per the specification's own
// design notes (§9), a single ordered set keyed by (score, member) is
// "equivalent for all contracts" to the two-index (member→score,
// score→members) form and simpler to keep consistent, so that is what is
// implemented here: scores gives O(1) membership/score lookup, order is
// scores' members kept in the zmember.less total order so rank and range
// queries are a single binary search plus a slice.
type zset struct {
	scores map[string]float64
	order  []zmember
}

func newZSet() *zset {
	return &zset{scores: map[string]float64{}}
}

func (z *zset) card() int { return len(z.scores) }

// findPos returns the index in order at which m would sit (or does sit,
// if present).
func (z *zset) findPos(m zmember) int {
	return sort.Search(len(z.order), func(i int) bool {
		return !z.order[i].less(m)
	})
}

// add inserts or updates member with score. Returns true if member is new.
// Updating an existing member's score removes its old (score, member) slot
// before inserting the new one, keeping order consistent at every step.
func (z *zset) add(member string, score float64) bool {
	old, existed := z.scores[member]
	if existed {
		if old == score {
			return false
		}
		pos := z.findPos(zmember{member: member, score: old})
		for pos < len(z.order) && z.order[pos].member != member {
			pos++
		}
		z.order = append(z.order[:pos], z.order[pos+1:]...)
	}
	z.scores[member] = score
	newEntry := zmember{member: member, score: score}
	pos := z.findPos(newEntry)
	z.order = append(z.order, zmember{})
	copy(z.order[pos+1:], z.order[pos:])
	z.order[pos] = newEntry
	return !existed
}

// remove deletes member if present, returning whether it existed.
func (z *zset) remove(member string) bool {
	score, ok := z.scores[member]
	if !ok {
		return false
	}
	pos := z.findPos(zmember{member: member, score: score})
	for pos < len(z.order) && z.order[pos].member != member {
		pos++
	}
	z.order = append(z.order[:pos], z.order[pos+1:]...)
	delete(z.scores, member)
	return true
}

func (z *zset) score(member string) (float64, bool) {
	s, ok := z.scores[member]
	return s, ok
}

// rank returns member's zero-based index in ascending (score, member)
// order, or -1 if absent.
func (z *zset) rank(member string) int {
	score, ok := z.scores[member]
	if !ok {
		return -1
	}
	pos := z.findPos(zmember{member: member, score: score})
	for pos < len(z.order) {
		if z.order[pos].member == member {
			return pos
		}
		pos++
	}
	return -1
}

// rangeSlice returns the members in [start, stop] of the ascending order,
// with start/stop already normalized by the caller.
func (z *zset) rangeSlice(start, stop int) []zmember {
	if start > stop || start >= len(z.order) {
		return nil
	}
	if stop >= len(z.order) {
		stop = len(z.order) - 1
	}
	out := make([]zmember, stop-start+1)
	copy(out, z.order[start:stop+1])
	return out
}
