package txn

import (
	"sync"

	"latchdb/internal/util"
)

// State is a transaction's position in the strict-2PL state machine.
type State int

const (
	Growing State = iota
	Shrinking
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Growing:
		return "GROWING"
	case Shrinking:
		return "SHRINKING"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// WriteKind is the operation a WriteRecord undoes on abort.
type WriteKind int

const (
	WriteInsert WriteKind = iota
	WriteDelete
	WriteUpdate
)

// WriteRecord journals a single table-heap mutation for abort-time undo:
// inserts undo as deletes, deletes undo as reinserts, updates undo by
// restoring the pre-image (spec.md §4.6).
type WriteRecord struct {
	Kind     WriteKind
	Table    string
	RID      util.RID
	OldTuple []byte
	NewTuple []byte
}

// IndexWriteRecord journals an index-entry mutation alongside its table
// write so abort can swap index entries back, per spec.md §4.6.
type IndexWriteRecord struct {
	Kind      WriteKind
	IndexName string
	OldKey    []byte
	NewKey    []byte
	RID       util.RID
}

// Transaction tracks one query's lock sets, state, and write journal.
type Transaction struct {
	mu sync.Mutex

	id        util.TransactionID
	isolation util.IsolationLevel
	state     State

	sharedLocks    map[util.RID]struct{}
	exclusiveLocks map[util.RID]struct{}

	writeSet      []WriteRecord
	indexWriteSet []IndexWriteRecord
}

func newTransaction(id util.TransactionID, isolation util.IsolationLevel) *Transaction {
	return &Transaction{
		id:             id,
		isolation:      isolation,
		state:          Growing,
		sharedLocks:    make(map[util.RID]struct{}),
		exclusiveLocks: make(map[util.RID]struct{}),
	}
}

// ID returns the transaction's stable identifier.
func (t *Transaction) ID() util.TransactionID { return t.id }

// Isolation returns the transaction's isolation level.
func (t *Transaction) Isolation() util.IsolationLevel { return t.isolation }

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Transaction) addSharedLock(rid util.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sharedLocks[rid] = struct{}{}
}

func (t *Transaction) addExclusiveLock(rid util.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exclusiveLocks[rid] = struct{}{}
}

func (t *Transaction) removeSharedLock(rid util.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sharedLocks, rid)
}

func (t *Transaction) removeExclusiveLock(rid util.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.exclusiveLocks, rid)
}

// HoldsShared reports whether txn already holds rid in shared mode.
func (t *Transaction) HoldsShared(rid util.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sharedLocks[rid]
	return ok
}

// HoldsExclusive reports whether txn already holds rid in exclusive mode.
func (t *Transaction) HoldsExclusive(rid util.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.exclusiveLocks[rid]
	return ok
}

// HeldSharedLocks returns a snapshot of rids currently held in shared mode.
func (t *Transaction) HeldSharedLocks() []util.RID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]util.RID, 0, len(t.sharedLocks))
	for rid := range t.sharedLocks {
		out = append(out, rid)
	}
	return out
}

// HeldExclusiveLocks returns a snapshot of rids currently held in exclusive mode.
func (t *Transaction) HeldExclusiveLocks() []util.RID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]util.RID, 0, len(t.exclusiveLocks))
	for rid := range t.exclusiveLocks {
		out = append(out, rid)
	}
	return out
}

// AppendWrite journals a table-heap write for possible abort-time undo.
func (t *Transaction) AppendWrite(rec WriteRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeSet = append(t.writeSet, rec)
}

// AppendIndexWrite journals an index mutation alongside its table write.
func (t *Transaction) AppendIndexWrite(rec IndexWriteRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indexWriteSet = append(t.indexWriteSet, rec)
}

// WriteSet returns the journaled table writes in commit order.
func (t *Transaction) WriteSet() []WriteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]WriteRecord, len(t.writeSet))
	copy(out, t.writeSet)
	return out
}

// IndexWriteSet returns the journaled index writes in commit order.
func (t *Transaction) IndexWriteSet() []IndexWriteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]IndexWriteRecord, len(t.indexWriteSet))
	copy(out, t.indexWriteSet)
	return out
}
