package types

// LookupStatus distinguishes the three outcomes of a store lookup.
// The engine degrades both NotFound and StoreFailure to the documented
// empty defaults at its public boundary, but internal call sites can
// log and count them separately.
type LookupStatus int

const (
	// LookupOK means the record was found.
	LookupOK LookupStatus = iota

	// LookupNotFound means the store answered but has no such record.
	LookupNotFound

	// LookupFailed means the store call itself failed.
	LookupFailed
)

// MemoryLookup is the outcome of a single-memory store read.
type MemoryLookup struct {
	Memory Memory
	Status LookupStatus
	Err    error
}

// Found reports whether the lookup produced a usable memory.
func (l MemoryLookup) Found() bool {
	return l.Status == LookupOK
}

// FoundMemory wraps a successful lookup.
func FoundMemory(m Memory) MemoryLookup {
	return MemoryLookup{Memory: m, Status: LookupOK}
}

// MissingMemory wraps a not-found lookup.
func MissingMemory() MemoryLookup {
	return MemoryLookup{Status: LookupNotFound}
}

// FailedLookup wraps a store failure.
func FailedLookup(err error) MemoryLookup {
	return MemoryLookup{Status: LookupFailed, Err: err}
}
