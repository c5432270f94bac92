package resp

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		SimpleString("OK"),
		Error("ERR boom"),
		Error("WRONGTYPE nope"),
		Integer(0),
		Integer(-42),
		BulkString("hello"),
		BulkString(""),
		Null(),
		Array([]Value{BulkString("a"), BulkString("b")}),
		Array([]Value{Integer(1), Array([]Value{BulkString("nested")})}),
		Array(nil),
	}
	for _, v := range cases {
		encoded := Encode(v)
		got, n, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode(%q): %v", encoded, err)
		}
		if n != len(encoded) {
			t.Fatalf("decode(%q): consumed %d, want %d", encoded, n, len(encoded))
		}
		if v.Kind == KindError {
			if got.Kind != KindError || got.Str != v.Str {
				t.Fatalf("error round trip: got %+v want %+v", got, v)
			}
			continue
		}
		if diff := cmp.Diff(v, got); diff != "" {
			t.Errorf("round trip mismatch for %+v (-want +got):\n%s", v, diff)
		}
	}
}

func TestBulkStringWithEmbeddedCRLF(t *testing.T) {
	v := BulkString("a\r\nb\r\nc")
	encoded := Encode(v)
	got, n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d want %d", n, len(encoded))
	}
	if string(got.Bulk) != "a\r\nb\r\nc" {
		t.Fatalf("got %q", got.Bulk)
	}
}

func TestIncrementalDecodeMatchesOneShot(t *testing.T) {
	msg := Array([]Value{
		BulkString("SET"),
		BulkString("key"),
		BulkString("a fairly long value with some\r\nembedded junk"),
	})
	whole := Encode(msg)

	oneShot, _, err := Decode(whole)
	if err != nil {
		t.Fatal(err)
	}

	// Try every split point short of the full message; feed the bytes up
	// to the split in one chunk, then the rest in another, and confirm the
	// same message comes out no matter where the stream was interrupted.
	for split := 0; split < len(whole); split++ {
		var d Deframer
		d.Feed(whole[:split])
		if _, ok, err := d.Next(); ok || err != nil {
			if err != nil {
				t.Fatalf("split %d: unexpected error on partial input: %v", split, err)
			}
			t.Fatalf("split %d: decoded before full message was fed", split)
		}
		d.Feed(whole[split:])
		got, ok, err := d.Next()
		if err != nil {
			t.Fatalf("split %d: %v", split, err)
		}
		if !ok {
			t.Fatalf("split %d: expected a complete message", split)
		}
		if cmp.Diff(oneShot, got) != "" {
			t.Fatalf("split %d: decoded value differs from one-shot decode", split)
		}
	}
}

func TestDeframerSequenceOfMessages(t *testing.T) {
	msgs := []Value{BulkString("one"), Integer(2), SimpleString("three")}
	var whole []byte
	for _, m := range msgs {
		whole = append(whole, Encode(m)...)
	}

	r := rand.New(rand.NewSource(1))
	var d Deframer
	var got []Value
	for i := 0; i < len(whole); {
		chunk := 1 + r.Intn(5)
		if i+chunk > len(whole) {
			chunk = len(whole) - i
		}
		d.Feed(whole[i : i+chunk])
		i += chunk
		for {
			v, ok, err := d.Next()
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				break
			}
			got = append(got, v)
		}
	}
	if cmp.Diff(msgs, got) != "" {
		t.Fatalf("got %+v want %+v", got, msgs)
	}
}

func TestDecodeIncomplete(t *testing.T) {
	for _, partial := range [][]byte{
		nil,
		[]byte("$5\r\nhel"),
		[]byte("*2\r\n$1\r\na\r\n"),
		[]byte(":"),
	} {
		_, _, err := Decode(partial)
		if err != ErrIncomplete {
			t.Errorf("Decode(%q) = %v, want ErrIncomplete", partial, err)
		}
	}
}

func TestDecodeInlineCommand(t *testing.T) {
	got, n, err := Decode([]byte("PING\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if n != len("PING\r\n") {
		t.Fatalf("consumed %d", n)
	}
	want := Array([]Value{BulkString("PING")})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNullBulkString(t *testing.T) {
	v, _, err := Decode([]byte("$-1\r\n"))
	if err != nil || !v.IsNull() {
		t.Fatalf("got %+v err %v", v, err)
	}
}
