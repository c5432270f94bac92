package resp

import (
	"fmt"
	"strconv"
)

// Encode produces v's canonical RESP byte representation. Encode then
// Decode is the identity, modulo Error decoding back as KindError rather
// than any richer Go error type.
func Encode(v Value) []byte {
	buf := make([]byte, 0, 64)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindSimpleString:
		buf = append(buf, '+')
		buf = append(buf, v.Str...)
		return append(buf, '\r', '\n')
	case KindError:
		buf = append(buf, '-')
		buf = append(buf, v.Str...)
		return append(buf, '\r', '\n')
	case KindInteger:
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, v.Int, 10)
		return append(buf, '\r', '\n')
	case KindBulkString:
		if v.Bulk == nil {
			return append(buf, '$', '-', '1', '\r', '\n')
		}
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(v.Bulk)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, v.Bulk...)
		return append(buf, '\r', '\n')
	case KindArray:
		if v.Array == nil {
			return append(buf, '*', '-', '1', '\r', '\n')
		}
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(v.Array)), 10)
		buf = append(buf, '\r', '\n')
		for _, e := range v.Array {
			buf = appendValue(buf, e)
		}
		return buf
	default:
		return buf
	}
}

// OK is the canonical +OK\r\n reply used by SET, SAVE, and friends.
func OK() Value { return SimpleString("OK") }

// ErrFmt builds a RESP error value with an "ERR " prefix, matching the
// dispatcher's client-facing error taxonomy (§7 of the specification).
func ErrFmt(format string, args ...any) Value {
	return Error("ERR " + fmt.Sprintf(format, args...))
}

// WrongType builds the fixed WRONGTYPE error the codec's dispatcher
// recognizes as a distinct category by its "WRONGTYPE " prefix.
func WrongType() Value {
	return Error("WRONGTYPE Operation against a key holding the wrong kind of value")
}
