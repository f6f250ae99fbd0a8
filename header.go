package csv

import (
	"bytes"

	"github.com/dchest/siphash"
)

// headerEntry is one name → column-index binding, chained within its
// bucket for collision handling.
type headerEntry struct {
	name        []byte
	columnIndex int
	next        *headerEntry
}

// headerMap is a chained hash table from header name to column index,
// paired with a reverse index (column index → entry) so "what's the
// name of column k" is also O(1). Both views are kept in sync by every
// mutator below; rebuildReverseIndex is the escape hatch used after a
// bulk shift (column insert/remove) touches many entries at once.
type headerMap struct {
	buckets      []*headerEntry
	size         int
	indexToEntry []*headerEntry
	k0, k1       uint64
}

// Fixed keys: the hash only needs to avoid adversarial bucket
// collisions within one process's lifetime, not resist an attacker who
// can observe outputs, so a constant key pair (rather than a random
// one reseeded per table) is fine here and keeps header lookups
// reproducible across runs of the same input.
const headerHashKey0 = 0x9e3779b97f4a7c15
const headerHashKey1 = 0xc2b2ae3d27d4eb4f

func newHeaderMap(bucketCount int) *headerMap {
	if bucketCount <= 0 {
		bucketCount = defaultHeaderBuckets
	}
	return &headerMap{
		buckets: make([]*headerEntry, bucketCount),
		k0:      headerHashKey0,
		k1:      headerHashKey1,
	}
}

func (h *headerMap) bucketIndex(name []byte) int {
	sum := siphash.Hash(h.k0, h.k1, name)
	return int(sum % uint64(len(h.buckets)))
}

// lookupFirst returns the first entry bound to name, following
// insertion order within the chain (most recently inserted first).
func (h *headerMap) lookupFirst(name []byte) *headerEntry {
	for e := h.buckets[h.bucketIndex(name)]; e != nil; e = e.next {
		if bytes.Equal(e.name, name) {
			return e
		}
	}
	return nil
}

// lookupNext returns the entry bound to name with the smallest column
// index greater than current, for walking repeated header names left
// to right (HeaderDupCollect).
func (h *headerMap) lookupNext(name []byte, current int) *headerEntry {
	var best *headerEntry
	for e := h.buckets[h.bucketIndex(name)]; e != nil; e = e.next {
		if !bytes.Equal(e.name, name) || e.columnIndex <= current {
			continue
		}
		if best == nil || e.columnIndex < best.columnIndex {
			best = e
		}
	}
	return best
}

func (h *headerMap) entryAt(columnIndex int) *headerEntry {
	if columnIndex < 0 || columnIndex >= len(h.indexToEntry) {
		return nil
	}
	return h.indexToEntry[columnIndex]
}

func (h *headerMap) insert(e *headerEntry) {
	idx := h.bucketIndex(e.name)
	e.next = h.buckets[idx]
	h.buckets[idx] = e
	h.size++
	h.setIndex(e.columnIndex, e)
}

func (h *headerMap) remove(e *headerEntry) {
	idx := h.bucketIndex(e.name)
	if h.buckets[idx] == e {
		h.buckets[idx] = e.next
		h.size--
		if h.entryAt(e.columnIndex) == e {
			h.indexToEntry[e.columnIndex] = nil
		}
		return
	}
	for cur := h.buckets[idx]; cur != nil; cur = cur.next {
		if cur.next == e {
			cur.next = e.next
			h.size--
			if h.entryAt(e.columnIndex) == e {
				h.indexToEntry[e.columnIndex] = nil
			}
			return
		}
	}
}

func (h *headerMap) setIndex(i int, e *headerEntry) {
	if i >= len(h.indexToEntry) {
		grown := make([]*headerEntry, i+1)
		copy(grown, h.indexToEntry)
		h.indexToEntry = grown
	}
	h.indexToEntry[i] = e
}

// rebuildReverseIndex recomputes indexToEntry from scratch. Called
// after column insert/remove renumbers many entries' columnIndex at
// once, which would otherwise leave indexToEntry full of stale
// pointers at the shifted positions.
func (h *headerMap) rebuildReverseIndex() {
	maxIdx := -1
	for _, bucket := range h.buckets {
		for e := bucket; e != nil; e = e.next {
			if e.columnIndex > maxIdx {
				maxIdx = e.columnIndex
			}
		}
	}
	h.indexToEntry = make([]*headerEntry, maxIdx+1)
	for _, bucket := range h.buckets {
		for e := bucket; e != nil; e = e.next {
			h.indexToEntry[e.columnIndex] = e
		}
	}
}

// bumpIndicesFrom adds delta to the columnIndex of every entry at or
// past fromIdx, then rebuilds the reverse index to match.
func (h *headerMap) bumpIndicesFrom(fromIdx, delta int) {
	for _, bucket := range h.buckets {
		for e := bucket; e != nil; e = e.next {
			if e.columnIndex >= fromIdx {
				e.columnIndex += delta
			}
		}
	}
	h.rebuildReverseIndex()
}
