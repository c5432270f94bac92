// Package snapshot implements FerroDB's self-describing binary dump file:
// a full keyspace snapshot written atomically (write-to-tmp, fsync,
// rename) and restorable at startup.
//
// File layout (preserved byte-for-byte, including its historically mixed
// endianness per type — see SPEC_FULL.md §9 Open Question 1):
//
//	magic   8 bytes  "FERRODB\0"
//	version 1 byte   (= 1)
//	count   u64 BE
//	for each entry:
//	  key_len u64 BE, key_len bytes
//	  type    1 byte (0=String 1=List 2=Set 3=SortedSet)
//	  body    type-dependent, see writeBody/readBody
//	  has_ttl 1 byte
//	  if has_ttl: remaining_seconds i64 BE (0 = already expired)
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/zuhaib786/FerroDB/internal/ferrors"
	"github.com/zuhaib786/FerroDB/internal/keyspace"
)

var magic = [8]byte{'F', 'E', 'R', 'R', 'O', 'D', 'B', 0}

const currentVersion = 1

type typeTag byte

const (
	tagString typeTag = 0
	tagList   typeTag = 1
	tagSet    typeTag = 2
	tagZSet   typeTag = 3
)

// Save writes entries to path atomically: it writes to path+".tmp",
// flushes and fsyncs that file, then renames it onto path. A reader of
// the previous snapshot sees the old file until the rename completes.
func Save(path string, entries []keyspace.SnapshotEntry) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ferrors.WithStack(err)
	}
	w := bufio.NewWriter(f)

	if err := writeHeader(w, len(entries)); err != nil {
		f.Close()
		return err
	}
	for _, e := range entries {
		if err := writeEntry(w, e); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return ferrors.WithStack(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return ferrors.WithStack(err)
	}
	if err := f.Close(); err != nil {
		return ferrors.WithStack(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ferrors.WithStack(err)
	}
	return nil
}

// ErrBadMagic/ErrBadVersion are returned by Load when the file's header
// does not match what this codec understands.
var (
	ErrBadMagic   = errBadMagic{}
	ErrBadVersion = errBadVersion{}
)

type errBadMagic struct{}

func (errBadMagic) Error() string { return "snapshot: bad magic" }

type errBadVersion struct{}

func (errBadVersion) Error() string { return "snapshot: unsupported version" }

// Load reads path and reconstructs its entries. Entries whose remaining
// TTL was already zero (expired at dump time) are dropped. A missing file
// is reported to the caller as os.IsNotExist(err); callers that treat a
// missing snapshot as "start empty" should check for that explicitly.
func Load(path string) ([]keyspace.SnapshotEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	count, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	out := make([]keyspace.SnapshotEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		e, keep, err := readEntry(r)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, e)
		}
	}
	return out, nil
}

func writeHeader(w io.Writer, count int) error {
	if _, err := w.Write(magic[:]); err != nil {
		return ferrors.WithStack(err)
	}
	if _, err := w.Write([]byte{currentVersion}); err != nil {
		return ferrors.WithStack(err)
	}
	return writeU64BE(w, uint64(count))
}

func readHeader(r io.Reader) (uint64, error) {
	var got [8]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return 0, ferrors.WithStack(err)
	}
	if !bytes.Equal(got[:], magic[:]) {
		return 0, ErrBadMagic
	}
	var ver [1]byte
	if _, err := io.ReadFull(r, ver[:]); err != nil {
		return 0, ferrors.WithStack(err)
	}
	if ver[0] != currentVersion {
		return 0, ErrBadVersion
	}
	return readU64BE(r)
}

func writeEntry(w io.Writer, e keyspace.SnapshotEntry) error {
	if err := writeU64BE(w, uint64(len(e.Key))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, e.Key); err != nil {
		return ferrors.WithStack(err)
	}
	if err := writeBody(w, e.Value); err != nil {
		return err
	}
	if !e.HasTTL {
		_, err := w.Write([]byte{0})
		return ferrors.WithStack(err)
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return ferrors.WithStack(err)
	}
	remaining := int64(time.Until(e.Deadline) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return writeI64BE(w, remaining)
}

func readEntry(r io.Reader) (keyspace.SnapshotEntry, bool, error) {
	klen, err := readU64BE(r)
	if err != nil {
		return keyspace.SnapshotEntry{}, false, err
	}
	keyBuf := make([]byte, klen)
	if _, err := io.ReadFull(r, keyBuf); err != nil {
		return keyspace.SnapshotEntry{}, false, ferrors.WithStack(err)
	}
	tv, err := readBody(r)
	if err != nil {
		return keyspace.SnapshotEntry{}, false, err
	}
	var hasTTLByte [1]byte
	if _, err := io.ReadFull(r, hasTTLByte[:]); err != nil {
		return keyspace.SnapshotEntry{}, false, ferrors.WithStack(err)
	}
	e := keyspace.SnapshotEntry{Key: string(keyBuf), Value: tv}
	if hasTTLByte[0] == 0 {
		return e, true, nil
	}
	remaining, err := readI64BE(r)
	if err != nil {
		return keyspace.SnapshotEntry{}, false, err
	}
	if remaining == 0 {
		return keyspace.SnapshotEntry{}, false, nil
	}
	e.HasTTL = true
	e.Deadline = time.Now().Add(time.Duration(remaining) * time.Second)
	return e, true, nil
}

func writeBody(w io.Writer, tv keyspace.TypedValue) error {
	switch tv.Kind {
	case "string":
		if _, err := w.Write([]byte{byte(tagString)}); err != nil {
			return ferrors.WithStack(err)
		}
		return writeLenPrefixedBE(w, tv.Str)
	case "list":
		if _, err := w.Write([]byte{byte(tagList)}); err != nil {
			return ferrors.WithStack(err)
		}
		if err := writeU64BE(w, uint64(len(tv.List))); err != nil {
			return err
		}
		for _, item := range tv.List {
			if err := writeLenPrefixedBE(w, item); err != nil {
				return err
			}
		}
		return nil
	case "set":
		if _, err := w.Write([]byte{byte(tagSet)}); err != nil {
			return ferrors.WithStack(err)
		}
		if err := writeU64LE(w, uint64(len(tv.Set))); err != nil {
			return err
		}
		for _, m := range tv.Set {
			if err := writeLenPrefixedBE(w, m); err != nil {
				return err
			}
		}
		return nil
	case "zset":
		if _, err := w.Write([]byte{byte(tagZSet)}); err != nil {
			return ferrors.WithStack(err)
		}
		if err := writeU64LE(w, uint64(len(tv.ZSet))); err != nil {
			return err
		}
		for _, sm := range tv.ZSet {
			if err := writeLenPrefixedBE(w, sm.Member); err != nil {
				return err
			}
			if err := writeF64LE(w, sm.Score); err != nil {
				return err
			}
		}
		return nil
	default:
		return ferrors.WithStack(errBadTag{})
	}
}

type errBadTag struct{}

func (errBadTag) Error() string { return "snapshot: unknown value kind" }

func readBody(r io.Reader) (keyspace.TypedValue, error) {
	var tagByte [1]byte
	if _, err := io.ReadFull(r, tagByte[:]); err != nil {
		return keyspace.TypedValue{}, ferrors.WithStack(err)
	}
	switch typeTag(tagByte[0]) {
	case tagString:
		s, err := readLenPrefixedBE(r)
		if err != nil {
			return keyspace.TypedValue{}, err
		}
		return keyspace.TypedValue{Kind: "string", Str: s}, nil
	case tagList:
		n, err := readU64BE(r)
		if err != nil {
			return keyspace.TypedValue{}, err
		}
		list := make([][]byte, n)
		for i := range list {
			s, err := readLenPrefixedBE(r)
			if err != nil {
				return keyspace.TypedValue{}, err
			}
			list[i] = s
		}
		return keyspace.TypedValue{Kind: "list", List: list}, nil
	case tagSet:
		n, err := readU64LE(r)
		if err != nil {
			return keyspace.TypedValue{}, err
		}
		set := make([][]byte, n)
		for i := range set {
			s, err := readLenPrefixedBE(r)
			if err != nil {
				return keyspace.TypedValue{}, err
			}
			set[i] = s
		}
		return keyspace.TypedValue{Kind: "set", Set: set}, nil
	case tagZSet:
		n, err := readU64LE(r)
		if err != nil {
			return keyspace.TypedValue{}, err
		}
		zs := make([]keyspace.ScoreMember, n)
		for i := range zs {
			m, err := readLenPrefixedBE(r)
			if err != nil {
				return keyspace.TypedValue{}, err
			}
			score, err := readF64LE(r)
			if err != nil {
				return keyspace.TypedValue{}, err
			}
			zs[i] = keyspace.ScoreMember{Score: score, Member: m}
		}
		return keyspace.TypedValue{Kind: "zset", ZSet: zs}, nil
	default:
		return keyspace.TypedValue{}, ferrors.WithStack(errBadTag{})
	}
}
