package locator

import (
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/yxflow/internal/workflow"
)

// Index maps ToolIDs to nodes after a single traversal. Batch edits resolve
// all their targets through one Index instead of walking once per target.
type Index struct {
	// first holds the first node seen for each id.
	first map[int]Match
	// Roaring bitmaps over uint32 ids: every id seen, and ids seen more
	// than once. Lookup answers presence and uniqueness from them.
	seen *roaring.Bitmap
	dups *roaring.Bitmap
	// Ids outside the uint32 range do not fit a bitmap and are counted here.
	wide map[int]int
}

// NewIndex walks doc once.
func NewIndex(doc *workflow.Document) *Index {
	idx := &Index{
		first: make(map[int]Match),
		seen:  roaring.New(),
		dups:  roaring.New(),
		wide:  make(map[int]int),
	}
	Walk(doc, func(m Match) bool {
		id := m.ID()
		if _, ok := idx.first[id]; !ok {
			idx.first[id] = m
		}
		if !fits(id) {
			idx.wide[id]++
			return true
		}
		if !idx.seen.CheckedAdd(uint32(id)) {
			idx.dups.Add(uint32(id))
		}
		return true
	})
	return idx
}

func fits(id int) bool {
	return id >= 0 && int64(id) <= math.MaxUint32
}

// Lookup behaves like FindByID against the indexed document.
func (idx *Index) Lookup(id int) (Match, error) {
	if !idx.Contains(id) {
		return Match{}, workflow.Errorf(workflow.ErrNotFound, "Tool ID %d not found", id)
	}
	if idx.duplicated(id) {
		return Match{}, workflow.Errorf(workflow.ErrDuplicateID, "Tool ID %d appears more than once", id)
	}
	return idx.first[id], nil
}

func (idx *Index) duplicated(id int) bool {
	if fits(id) {
		return idx.dups.Contains(uint32(id))
	}
	return idx.wide[id] > 1
}

// Len is the number of distinct ids.
func (idx *Index) Len() int { return int(idx.seen.GetCardinality()) + len(idx.wide) }

// Contains reports whether any node carries id.
func (idx *Index) Contains(id int) bool {
	if fits(id) {
		return idx.seen.Contains(uint32(id))
	}
	return idx.wide[id] > 0
}

// IDs returns the distinct ids in ascending order.
func (idx *Index) IDs() []int {
	return merge(idx.seen, func(int) bool { return true }, idx.wide)
}

// Duplicates returns every id carried by more than one node, ascending.
func (idx *Index) Duplicates() []int {
	return merge(idx.dups, func(n int) bool { return n > 1 }, idx.wide)
}

// merge combines the bitmap ids with the wide ids whose count passes keep.
func merge(bm *roaring.Bitmap, keep func(count int) bool, wide map[int]int) []int {
	var neg, big []int
	for id, n := range wide {
		if !keep(n) {
			continue
		}
		if id < 0 {
			neg = append(neg, id)
		} else {
			big = append(big, id)
		}
	}
	slices.Sort(neg)
	slices.Sort(big)

	out := make([]int, 0, len(neg)+int(bm.GetCardinality())+len(big))
	out = append(out, neg...)
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return append(out, big...)
}
