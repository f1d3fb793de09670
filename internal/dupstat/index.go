package dupstat

import (
	"bytes"
	"cmp"
	"slices"
	"sync"
)

// entry accumulates the members of one signature.
type entry struct {
	size    uint64
	members []string
}

// Index maps signatures to the files sharing them. Add is safe for concurrent
// use; after Finalize the index is frozen.
type Index struct {
	mu         sync.Mutex // Protect concurrent access
	entries    map[Signature]*entry
	groups     []DuplicateGroup
	totalBytes uint64
	files      uint64
	final      bool
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[Signature]*entry)}
}

// Add records a successfully fingerprinted file.
func (x *Index) Add(sig Signature, rec FileRecord) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.final {
		panic("dupstat: Add called on finalized index")
	}

	x.totalBytes += rec.Size
	x.files++

	e, ok := x.entries[sig]
	if !ok {
		e = &entry{size: rec.Size}
		x.entries[sig] = e
	}

	e.members = append(e.members, rec.Path)
}

// Count records a file that was read successfully but needs no signature
// because nothing else can share its content.
func (x *Index) Count(rec FileRecord) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.final {
		panic("dupstat: Count called on finalized index")
	}

	x.totalBytes += rec.Size
	x.files++
}

// TotalBytes returns the bytes of every file added so far.
func (x *Index) TotalBytes() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()

	return x.totalBytes
}

// Files returns the number of files added so far.
func (x *Index) Files() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()

	return x.files
}

// Finalize freezes the index and returns the duplicate groups: every
// signature with at least two members, members sorted, groups ordered by
// wasted bytes (largest first). Calling it again returns the same groups.
func (x *Index) Finalize() []DuplicateGroup {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.final {
		return x.groups
	}

	x.final = true

	groups := make([]DuplicateGroup, 0)

	for sig, e := range x.entries {
		if len(e.members) < 2 {
			continue
		}

		members := slices.Clone(e.members)
		slices.Sort(members)

		groups = append(groups, DuplicateGroup{Signature: sig, Members: members, Size: e.size})
	}

	sortGroups(groups)

	x.groups = groups
	x.entries = nil

	return groups
}

// lookup returns the finalized groups carrying sig. Verification can split
// one signature into several groups.
func (x *Index) lookup(sig Signature) []DuplicateGroup {
	x.mu.Lock()
	defer x.mu.Unlock()

	var found []DuplicateGroup

	for _, g := range x.groups {
		if g.Signature == sig {
			found = append(found, g)
		}
	}

	return found
}

// replace swaps the finalized groups, used after verification.
func (x *Index) replace(groups []DuplicateGroup) {
	x.mu.Lock()
	defer x.mu.Unlock()

	sortGroups(groups)
	x.groups = groups
}

func sortGroups(groups []DuplicateGroup) {
	slices.SortFunc(groups, func(a, b DuplicateGroup) int {
		if c := cmp.Compare(b.Wasted(), a.Wasted()); c != 0 {
			return c
		}

		if c := bytes.Compare(a.Signature[:], b.Signature[:]); c != 0 {
			return c
		}

		return cmp.Compare(a.Members[0], b.Members[0])
	})
}
