// Package keyspace implements FerroDB's typed, expiring key-value store:
// a single map guarded by one RWMutex, holding String/List/Set/SortedSet
// entries with optional absolute expiration deadlines.
package keyspace

import (
	"time"

	"github.com/zuhaib786/FerroDB"
)

// kind identifies the closed sum of typed values a key can hold.
type kind int

const (
	kindString kind = iota
	kindList
	kindSet
	kindZSet
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindList:
		return "list"
	case kindSet:
		return "set"
	case kindZSet:
		return "zset"
	default:
		return "none"
	}
}

// value is the tagged variant backing every entry. Exactly one of the
// fields is meaningful, selected by kind; this is never exposed outside
// the package as an open interface, keeping wrong-type checks exhaustive.
type value struct {
	kind kind
	str  []byte
	list [][]byte
	set  ferroSet
	zset *zset
}

// entry pairs a typed value with an optional absolute expiration instant.
type entry struct {
	val      value
	deadline time.Time // zero Time means no expiration
	hasTTL   bool
}

func (e *entry) expired(now time.Time) bool {
	return e.hasTTL && !e.deadline.After(now)
}

// ferroSet is a set of unique byte-string members, keyed by their string
// form (Go strings are comparable and byte-identical to the underlying
// []byte content, so this loses nothing while staying map-friendly). It is
// defined directly on top of the root package's generic ferrodb.Set[K], so
// SINTER/SUNION/SDIFF (set.go) run on ferrodb.Set's own Intersection/Union/
// Difference rather than reimplementing them.
type ferroSet ferrodb.Set[string]

func newFerroSet() ferroSet { return ferroSet{} }

func (s ferroSet) generic() ferrodb.Set[string] { return ferrodb.Set[string](s) }

func (s ferroSet) add(m string) bool {
	if s.generic().Has(m) {
		return false
	}
	s.generic().Set(m)
	return true
}

func (s ferroSet) remove(m string) bool {
	if !s.generic().Has(m) {
		return false
	}
	s.generic().Del(m)
	return true
}

func (s ferroSet) has(m string) bool { return s.generic().Has(m) }

func (s ferroSet) union(o ferroSet) ferroSet {
	return ferroSet(s.generic().Union(o.generic()))
}

func (s ferroSet) intersection(o ferroSet) ferroSet {
	return ferroSet(s.generic().Intersection(o.generic()))
}

func (s ferroSet) difference(o ferroSet) ferroSet {
	return ferroSet(s.generic().Difference(o.generic()))
}
