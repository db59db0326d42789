package buffer

import "sync"

// LRUReplacer orders unpinned frames front = most-recently-unpinned, back =
// least-recently, exactly as spec.md §4.2 describes. It is grounded on two
// sources: the teacher's internal/storage/buffer/pool.go, which tracks an
// LRU list via parallel nextLRU/prevLRU arrays indexed by frame id, and
// original_source's lru_replacer.cpp (cache_map_ + cache_list_), whose
// Unpin-inserts-at-front/Victim-pops-back/Pin-removes contract this mirrors
// one-for-one. The links are kept in maps keyed by frame id, so any frame
// id is accepted, not only 0..capacity-1.
type LRUReplacer struct {
	mu sync.Mutex

	next map[int]int // next[i]: frame after i (towards back), -1 if tail
	prev map[int]int // prev[i]: frame before i (towards front), -1 if head
	in   map[int]bool

	head int // most-recently-unpinned
	tail int // least-recently-unpinned
	size int
}

// NewLRUReplacer builds a replacer sized for capacity frames.
func NewLRUReplacer(capacity int) *LRUReplacer {
	r := &LRUReplacer{
		next: make(map[int]int, capacity),
		prev: make(map[int]int, capacity),
		in:   make(map[int]bool, capacity),
		head: -1,
		tail: -1,
	}
	return r
}

// Victim pops the back (least-recently-unpinned) frame.
func (r *LRUReplacer) Victim() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tail == -1 {
		return 0, false
	}
	victim := r.tail
	r.removeLocked(victim)
	return victim, true
}

// Pin removes frameIdx from the list if present: it is no longer a victim
// candidate. The buffer pool calls this whenever a fetch raises a frame's
// pin count above zero, which is the invariant that keeps Victim from ever
// returning a pinned frame.
func (r *LRUReplacer) Pin(frameIdx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.in[frameIdx] {
		r.removeLocked(frameIdx)
	}
}

// Unpin inserts frameIdx at the front if it is not already tracked.
func (r *LRUReplacer) Unpin(frameIdx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.in[frameIdx] {
		return
	}
	r.in[frameIdx] = true
	r.prev[frameIdx] = -1
	r.next[frameIdx] = r.head
	if r.head != -1 {
		r.prev[r.head] = frameIdx
	}
	r.head = frameIdx
	if r.tail == -1 {
		r.tail = frameIdx
	}
	r.size++
}

// Size reports the number of evictable frames.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// removeLocked splices frameIdx out of the list. Caller holds r.mu.
func (r *LRUReplacer) removeLocked(frameIdx int) {
	p, n := r.prev[frameIdx], r.next[frameIdx]
	if p != -1 {
		r.next[p] = n
	} else {
		r.head = n
	}
	if n != -1 {
		r.prev[n] = p
	} else {
		r.tail = p
	}
	r.in[frameIdx] = false
	r.prev[frameIdx] = -1
	r.next[frameIdx] = -1
	r.size--
}
