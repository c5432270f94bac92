package keyspace

// getOrCreateListLocked returns key's list entry, creating it if absent. Returns
// ErrWrongType if key holds a different type.
func (k *Keyspace) getOrCreateListLocked(key string) (*entry, error) {
	e, ok := k.getLiveLocked(key)
	if !ok {
		e = &entry{val: value{kind: kindList}}
		k.data[key] = e
		return e, nil
	}
	if e.val.kind != kindList {
		return nil, ErrWrongType
	}
	return e, nil
}

// LPush prepends values (in argument order, so the final list head is the
// reverse of the arguments) and returns the new length.
func (k *Keyspace) LPush(key string, values ...[]byte) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := k.getOrCreateListLocked(key)
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		e.val.list = append([][]byte{v}, e.val.list...)
	}
	return int64(len(e.val.list)), nil
}

// RPush appends values in argument order and returns the new length.
func (k *Keyspace) RPush(key string, values ...[]byte) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, err := k.getOrCreateListLocked(key)
	if err != nil {
		return 0, err
	}
	e.val.list = append(e.val.list, values...)
	return int64(len(e.val.list)), nil
}

// LPop removes and returns up to count elements from the head. If key is
// absent, returns (nil, false, nil).
func (k *Keyspace) LPop(key string, count int64) ([][]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return nil, false, nil
	}
	if e.val.kind != kindList {
		return nil, false, ErrWrongType
	}
	if count > int64(len(e.val.list)) {
		count = int64(len(e.val.list))
	}
	out := e.val.list[:count]
	e.val.list = e.val.list[count:]
	k.deleteIfEmptyLocked(key, e)
	return out, true, nil
}

// RPop removes and returns up to count elements from the tail, in
// tail-to-head order.
func (k *Keyspace) RPop(key string, count int64) ([][]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return nil, false, nil
	}
	if e.val.kind != kindList {
		return nil, false, ErrWrongType
	}
	n := int64(len(e.val.list))
	if count > n {
		count = n
	}
	out := make([][]byte, count)
	for i := int64(0); i < count; i++ {
		out[i] = e.val.list[n-1-i]
	}
	e.val.list = e.val.list[:n-count]
	k.deleteIfEmptyLocked(key, e)
	return out, true, nil
}

// LLen returns the length of the list at key, or 0 if absent.
func (k *Keyspace) LLen(key string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return 0, nil
	}
	if e.val.kind != kindList {
		return 0, ErrWrongType
	}
	return int64(len(e.val.list)), nil
}

// LRange returns the elements between the normalized start and stop
// indices, inclusive.
func (k *Keyspace) LRange(key string, start, stop int64) ([][]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.getLiveLocked(key)
	if !ok {
		return nil, nil
	}
	if e.val.kind != kindList {
		return nil, ErrWrongType
	}
	n := len(e.val.list)
	s, stp := normalizeRange(int(start), int(stop), n)
	if s > stp || s >= n {
		return nil, nil
	}
	out := make([][]byte, stp-s+1)
	copy(out, e.val.list[s:stp+1])
	return out, nil
}
