package snapshot

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/zuhaib786/FerroDB/internal/ferrors"
)

// The snapshot format's endianness is inconsistent between types in the
// original source: String/List lengths use big-endian widths, Set/
// SortedSet counts and scores use little-endian. This is preserved
// exactly (SPEC_FULL.md §9 Open Question 1) rather than unified, so that
// existing .rdb files stay readable.

func writeU64BE(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return ferrors.WithStack(err)
}

func readU64BE(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ferrors.WithStack(err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeU64LE(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return ferrors.WithStack(err)
}

func readU64LE(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ferrors.WithStack(err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeI64BE(w io.Writer, v int64) error {
	return writeU64BE(w, uint64(v))
}

func readI64BE(r io.Reader) (int64, error) {
	v, err := readU64BE(r)
	return int64(v), err
}

func writeF64LE(w io.Writer, v float64) error {
	return writeU64LE(w, math.Float64bits(v))
}

func readF64LE(r io.Reader) (float64, error) {
	bits, err := readU64LE(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func writeLenPrefixedBE(w io.Writer, s []byte) error {
	if err := writeU64BE(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write(s)
	return ferrors.WithStack(err)
}

func readLenPrefixedBE(r io.Reader) ([]byte, error) {
	n, err := readU64BE(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ferrors.WithStack(err)
	}
	return buf, nil
}
