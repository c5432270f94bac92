package resp

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

// ErrIncomplete is returned by Decode when buf does not yet hold a
// complete message; the caller should read more bytes and retry with the
// same (or a longer) buffer.
var ErrIncomplete = errors.New("resp: incomplete message")

// ErrProtocol marks a structural decode error (the prefix byte, the
// declared length, or the array count make no sense). It is distinct from
// ErrIncomplete: no amount of additional input will fix it.
var ErrProtocol = errors.New("resp: protocol error")

const maxInlineLen = 64 * 1024

// Decode attempts to parse exactly one complete, possibly nested message
// from the front of buf. On success it returns the decoded value and the
// number of bytes consumed; the caller drains that prefix before the next
// call. On partial input it returns ErrIncomplete. On malformed input it
// returns an error wrapping ErrProtocol.
//
// Decode is re-entrant: repeated calls against the same growing buffer,
// split at any byte boundary, yield the same sequence of decoded messages
// as a single call against the fully assembled buffer.
func Decode(buf []byte) (Value, int, error) {
	if len(buf) == 0 {
		return Value{}, 0, ErrIncomplete
	}
	switch buf[0] {
	case '+', '-', ':', '$', '*':
		return decodeTyped(buf)
	default:
		return decodeInline(buf)
	}
}

func decodeTyped(buf []byte) (Value, int, error) {
	line, lineLen, err := readLine(buf)
	if err != nil {
		return Value{}, 0, err
	}
	body := line[1:]
	switch buf[0] {
	case '+':
		return SimpleString(string(body)), lineLen, nil
	case '-':
		return Error(string(body)), lineLen, nil
	case ':':
		n, err := parseInt(body)
		if err != nil {
			return Value{}, 0, err
		}
		return Integer(n), lineLen, nil
	case '$':
		return decodeBulk(buf, body, lineLen)
	case '*':
		return decodeArray(buf, body, lineLen)
	}
	return Value{}, 0, errors.Wrapf(ErrProtocol, "unreachable prefix %q", buf[0])
}

// readLine scans buf for a line starting at offset 0, terminated by CRLF
// or a bare LF, and returns the line without its terminator, plus the
// total number of bytes consumed (including the terminator).
func readLine(buf []byte) ([]byte, int, error) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		if len(buf) > maxInlineLen {
			return nil, 0, errors.Wrap(ErrProtocol, "line too long")
		}
		return nil, 0, ErrIncomplete
	}
	end := idx
	if end > 0 && buf[end-1] == '\r' {
		end--
	}
	return buf[:end], idx + 1, nil
}

func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrProtocol, "invalid integer %q", b)
	}
	return n, nil
}

func decodeBulk(buf, lenField []byte, headerLen int) (Value, int, error) {
	n, err := parseInt(lenField)
	if err != nil {
		return Value{}, 0, err
	}
	if n < 0 {
		return Null(), headerLen, nil
	}
	need := headerLen + int(n) + 2 // payload + CRLF
	if len(buf) < need {
		return Value{}, 0, ErrIncomplete
	}
	payload := buf[headerLen : headerLen+int(n)]
	if buf[headerLen+int(n)] != '\r' || buf[headerLen+int(n)+1] != '\n' {
		return Value{}, 0, errors.Wrap(ErrProtocol, "bulk string missing terminating CRLF")
	}
	out := make([]byte, n)
	copy(out, payload)
	return Bulk(out), need, nil
}

func decodeArray(buf, countField []byte, headerLen int) (Value, int, error) {
	n, err := parseInt(countField)
	if err != nil {
		return Value{}, 0, err
	}
	if n < 0 {
		return Value{Kind: KindArray, Array: nil}, headerLen, nil
	}
	offset := headerLen
	elems := make([]Value, 0, n)
	for i := int64(0); i < n; i++ {
		if offset >= len(buf) {
			return Value{}, 0, ErrIncomplete
		}
		v, consumed, err := Decode(buf[offset:])
		if err != nil {
			return Value{}, 0, err
		}
		elems = append(elems, v)
		offset += consumed
	}
	return Array(elems), offset, nil
}

// decodeInline handles the historical "inline command" escape hatch: a
// bare line with no leading type prefix, split on whitespace into an
// array of bulk strings. Used by raw telnet/nc clients.
func decodeInline(buf []byte) (Value, int, error) {
	line, lineLen, err := readLine(buf)
	if err != nil {
		return Value{}, 0, err
	}
	fields := bytes.Fields(line)
	elems := make([]Value, 0, len(fields))
	for _, f := range fields {
		cp := make([]byte, len(f))
		copy(cp, f)
		elems = append(elems, Bulk(cp))
	}
	return Array(elems), lineLen, nil
}
