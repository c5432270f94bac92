package resp

// Deframer accumulates bytes from a stream and extracts complete messages
// one at a time, re-entrantly. Connection-handling code feeds it whatever
// a Read returns and drains whole messages as they become available.
type Deframer struct {
	buf []byte
}

// Feed appends newly read bytes to the internal buffer.
func (d *Deframer) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Next attempts to extract one complete message from the buffered bytes.
// ok is false when more input is needed; err is non-nil only on a
// structural protocol error, which the caller should treat as fatal to the
// connection's current message (the buffer is left undrained so the
// caller can inspect it for diagnostics, but decoding cannot proceed).
func (d *Deframer) Next() (v Value, ok bool, err error) {
	val, consumed, derr := Decode(d.buf)
	if derr != nil {
		if derr == ErrIncomplete {
			return Value{}, false, nil
		}
		return Value{}, false, derr
	}
	d.buf = d.buf[consumed:]
	return val, true, nil
}

// Pending reports how many unconsumed bytes remain buffered.
func (d *Deframer) Pending() int {
	return len(d.buf)
}
