package util

import "errors"

// Storage-level sentinels, named after the teacher's internal/utils/errors.go.
var (
	ErrInvalidPageID    = errors.New("invalid page id")
	ErrNoFreeFrame      = errors.New("no free frame: buffer pool exhausted")
	ErrPageNotFound     = errors.New("page not found in buffer pool")
	ErrPagePinned       = errors.New("page is pinned")
	ErrPageNotPinned    = errors.New("page is not pinned")
	ErrInvalidFrameIdx  = errors.New("frame index out of bounds")
	ErrInvalidPoolSize  = errors.New("pool size must be positive")
	ErrReplacerEmpty    = errors.New("replacer has no victim frame")
	ErrDiskClosed       = errors.New("disk manager is closed")
	ErrPageOutOfBounds  = errors.New("page offset out of bounds")
)

// Transactional error kinds from spec §7. These are returned values, never
// panics: only storage-level invariant violations use assertions/panics.
var (
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrKeyNotFound           = errors.New("key not found")
	ErrLockOnReadUncommitted = errors.New("shared lock requested under READ_UNCOMMITTED")
	ErrTransactionAborted    = errors.New("transaction state violation: not GROWING")
	ErrDeadlock              = errors.New("transaction aborted by deadlock detector")
	ErrNotFound              = errors.New("not found")
	ErrOutOfMemory           = errors.New("buffer pool out of memory")
	ErrAlreadyLocked         = errors.New("lock already held in an incompatible mode")
)
