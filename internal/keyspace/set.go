package keyspace

// SAdd adds members to the set at key, creating it if absent. Returns the
// count of members that were not already present.
func (k *Keyspace) SAdd(key string, members ...[]byte) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		e = &entry{val: value{kind: kindSet, set: newFerroSet()}}
		k.data[key] = e
	} else if e.val.kind != kindSet {
		return 0, ErrWrongType
	}
	var added int64
	for _, m := range members {
		if e.val.set.add(string(m)) {
			added++
		}
	}
	return added, nil
}

// SRem removes members from the set at key. Returns the count removed.
func (k *Keyspace) SRem(key string, members ...[]byte) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return 0, nil
	}
	if e.val.kind != kindSet {
		return 0, ErrWrongType
	}
	var removed int64
	for _, m := range members {
		if e.val.set.remove(string(m)) {
			removed++
		}
	}
	k.deleteIfEmptyLocked(key, e)
	return removed, nil
}

// SMembers returns every member of the set at key.
func (k *Keyspace) SMembers(key string) ([][]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return nil, nil
	}
	if e.val.kind != kindSet {
		return nil, ErrWrongType
	}
	out := make([][]byte, 0, len(e.val.set))
	for m := range e.val.set {
		out = append(out, []byte(m))
	}
	return out, nil
}

// SIsMember reports whether member is in the set at key.
func (k *Keyspace) SIsMember(key string, member []byte) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return false, nil
	}
	if e.val.kind != kindSet {
		return false, ErrWrongType
	}
	return e.val.set.has(string(member)), nil
}

// SCard returns the cardinality of the set at key.
func (k *Keyspace) SCard(key string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return 0, nil
	}
	if e.val.kind != kindSet {
		return 0, ErrWrongType
	}
	return int64(len(e.val.set)), nil
}

// setOrNilLocked reads key as a live Set, returning (nil, nil) if absent and
// ErrWrongType if it holds a different type.
func (k *Keyspace) setOrNilLocked(key string) (ferroSet, error) {
	e, ok := k.getLiveLocked(key)
	if !ok {
		return nil, nil
	}
	if e.val.kind != kindSet {
		return nil, ErrWrongType
	}
	return e.val.set, nil
}

func toBytes(s ferroSet) [][]byte {
	out := make([][]byte, 0, len(s))
	for m := range s {
		out = append(out, []byte(m))
	}
	return out
}

// SInter returns the intersection of the sets at keys, computed via
// ferroSet's ferrodb.Set[K]-backed intersection. Per the specification, an
// absent or expired first key yields an empty result without promoting it
// to a value; any absent subsequent key also yields an empty result.
func (k *Keyspace) SInter(keys ...string) ([][]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(keys) == 0 {
		return nil, nil
	}
	result, err := k.setOrNilLocked(keys[0])
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	for _, key := range keys[1:] {
		s, err := k.setOrNilLocked(key)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, nil
		}
		result = result.intersection(s)
	}
	return toBytes(result), nil
}

// SUnion returns the union of the sets at keys. Absent keys behave as
// empty.
func (k *Keyspace) SUnion(keys ...string) ([][]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	result := newFerroSet()
	for _, key := range keys {
		s, err := k.setOrNilLocked(key)
		if err != nil {
			return nil, err
		}
		result = result.union(s)
	}
	return toBytes(result), nil
}

// SDiff returns the members of the set at keys[0] not present in any of
// the other sets. An absent or expired first key yields an empty result;
// absent subsequent keys behave as empty.
func (k *Keyspace) SDiff(keys ...string) ([][]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(keys) == 0 {
		return nil, nil
	}
	result, err := k.setOrNilLocked(keys[0])
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	for _, key := range keys[1:] {
		s, err := k.setOrNilLocked(key)
		if err != nil {
			return nil, err
		}
		result = result.difference(s)
	}
	return toBytes(result), nil
}
