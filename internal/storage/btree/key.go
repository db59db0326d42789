// Package btree implements the ordered key/value index (C4): fixed-width
// keys, leaf and internal node pages packed directly over raw page bytes,
// latch-crabbing descent, structural modification (split/coalesce/
// redistribute) and ordered iteration.
//
// spec.md models keys as a C++ template GenericKey<N>; this module picks a
// single concrete instantiation, an 8-byte key holding an int64, with an
// injected Comparator — the simplification is recorded as an Open Question
// resolution in DESIGN.md.
package btree

import "encoding/binary"

// KeySize is the fixed width of a Key in bytes.
const KeySize = 8

// Key is a fixed-width index key. Only the first 8 bytes are interpreted by
// the default comparator; callers needing a different key encoding inject
// their own Comparator.
type Key [KeySize]byte

// Int64Key packs v into a Key using big-endian order, so lexicographic byte
// comparison agrees with numeric comparison — this lets a Comparator be as
// simple as bytes.Compare when callers do not need a custom one.
func Int64Key(v int64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[:], uint64(v)+1<<63)
	return k
}

// Int64 unpacks a Key produced by Int64Key.
func (k Key) Int64() int64 {
	return int64(binary.BigEndian.Uint64(k[:]) - 1<<63)
}

// Comparator orders two keys: negative if a<b, zero if equal, positive if
// a>b. Injected into a Tree so the same node codec can serve any key
// encoding that fits in KeySize bytes.
type Comparator func(a, b Key) int

// DefaultComparator orders keys by their Int64Key interpretation.
func DefaultComparator(a, b Key) int {
	switch {
	case a == b:
		return 0
	default:
		av, bv := a.Int64(), b.Int64()
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
}
