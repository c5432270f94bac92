package keyspace

import (
	"sync"
	"time"
)

// ErrWrongType is returned by any typed operation against a key that
// already holds a different type; the dispatcher maps it to a RESP error
// with the "WRONGTYPE " prefix.
type WrongTypeError struct{}

func (WrongTypeError) Error() string { return "WRONGTYPE" }

var ErrWrongType error = WrongTypeError{}

// Keyspace is the process-wide mapping from key to entry. Every public
// operation, read or write, takes the exclusive side of a single RWMutex,
// so a read that discovers an expired entry can delete it before
// returning "absent" without upgrading a shared lock (§5's single-lock
// simplification).
type Keyspace struct {
	mu   sync.RWMutex
	data map[string]*entry
}

func New() *Keyspace {
	return &Keyspace{data: map[string]*entry{}}
}

// nowFunc is overridable in tests; production code always uses time.Now.
var nowFunc = time.Now

// getLiveLocked returns the live entry for key under the caller's already-held
// write lock, deleting it first if it has expired. Callers must hold mu
// for writing.
func (k *Keyspace) getLiveLocked(key string) (*entry, bool) {
	e, ok := k.data[key]
	if !ok {
		return nil, false
	}
	if e.expired(nowFunc()) {
		delete(k.data, key)
		return nil, false
	}
	return e, true
}

// deleteIfEmptyLocked removes key if its container value has become empty,
// enforcing invariant 2 (empty containers never persist).
func (k *Keyspace) deleteIfEmptyLocked(key string, e *entry) {
	empty := false
	switch e.val.kind {
	case kindList:
		empty = len(e.val.list) == 0
	case kindSet:
		empty = len(e.val.set) == 0
	case kindZSet:
		empty = e.val.zset.card() == 0
	}
	if empty {
		delete(k.data, key)
	}
}

// ---- Generic ----

// Exists returns how many of the given keys are present (not absent or
// expired).
func (k *Keyspace) Exists(keys ...string) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	var count int64
	for _, key := range keys {
		if _, ok := k.getLiveLocked(key); ok {
			count++
		}
	}
	return count
}

// Del removes each key if present, returning the count removed.
func (k *Keyspace) Del(keys ...string) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	var count int64
	for _, key := range keys {
		if _, ok := k.getLiveLocked(key); ok {
			delete(k.data, key)
			count++
		}
	}
	return count
}

// Expire sets key's TTL to now+seconds. Returns false if key is absent.
func (k *Keyspace) Expire(key string, seconds int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return false
	}
	e.hasTTL = true
	e.deadline = nowFunc().Add(time.Duration(seconds) * time.Second)
	return true
}

// TTL returns the remaining seconds until expiration, -1 if key exists
// with no TTL, or -2 if key is absent.
func (k *Keyspace) TTL(key string) int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return -2
	}
	if !e.hasTTL {
		return -1
	}
	remaining := e.deadline.Sub(nowFunc())
	if remaining < 0 {
		remaining = 0
	}
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}

// Persist removes key's TTL, if any. Returns true if a TTL was removed.
func (k *Keyspace) Persist(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok || !e.hasTTL {
		return false
	}
	e.hasTTL = false
	e.deadline = time.Time{}
	return true
}

// DBSize returns the number of live (non-expired) keys.
func (k *Keyspace) DBSize() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := nowFunc()
	var count int64
	for key, e := range k.data {
		if e.expired(now) {
			delete(k.data, key)
			continue
		}
		count++
	}
	return count
}

// Type returns the lowercase type name of key, or "none" if absent.
func (k *Keyspace) Type(key string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return "none"
	}
	return e.val.kind.String()
}

// ActiveSweep removes every currently-expired key. It is run periodically
// by a background task independent of client access (§3 invariant 4).
func (k *Keyspace) ActiveSweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := nowFunc()
	removed := 0
	for key, e := range k.data {
		if e.expired(now) {
			delete(k.data, key)
			removed++
		}
	}
	return removed
}

// normalizeRange maps signed start/stop indices per the specification's
// normalization rule: start is clamped to [0, n] and stop to [-1, n-1],
// so callers must still treat start > stop or start >= n as empty.
func normalizeRange(start, stop, n int) (int, int) {
	if start < 0 {
		start = n + start
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop = n + stop
		if stop < -1 {
			stop = -1
		}
	}
	if start > n {
		start = n
	}
	if stop > n-1 {
		stop = n - 1
	}
	return start, stop
}
