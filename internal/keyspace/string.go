package keyspace

import "time"

// Set stores value at key with no expiration, overwriting any existing
// entry regardless of its previous type.
func (k *Keyspace) Set(key string, val []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = &entry{val: value{kind: kindString, str: val}}
}

// SetWithTTL stores value at key with an expiration seconds from now.
func (k *Keyspace) SetWithTTL(key string, val []byte, seconds int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = &entry{
		val:      value{kind: kindString, str: val},
		hasTTL:   true,
		deadline: nowFunc().Add(time.Duration(seconds) * time.Second),
	}
}

// Get returns key's string value, or (nil, false) if absent/expired.
// Returns ErrWrongType if key holds a non-String value.
func (k *Keyspace) Get(key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return nil, false, nil
	}
	if e.val.kind != kindString {
		return nil, false, ErrWrongType
	}
	return e.val.str, true, nil
}

// MSet stores each key/value pair, clearing any prior TTL or type.
func (k *Keyspace) MSet(pairs map[string][]byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, val := range pairs {
		k.data[key] = &entry{val: value{kind: kindString, str: val}}
	}
}

// MGet returns one slot per key: the value if present as a live String,
// else nil (absent, expired, or wrong type — MGET never errors per key,
// mirroring Redis semantics of returning nil for type mismatches here).
func (k *Keyspace) MGet(keys []string) [][]byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([][]byte, len(keys))
	for i, key := range keys {
		e, ok := k.getLiveLocked(key)
		if !ok || e.val.kind != kindString {
			continue
		}
		out[i] = e.val.str
	}
	return out
}
