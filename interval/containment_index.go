package interval

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come, since that's what BAM is limited to.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// entry is one closed interval [start, end] and the value attached to it.
type entry struct {
	start PosType
	end   PosType
	value interface{}
}

// ContainmentIndex answers "which inserted intervals fully contain [start,
// stop]?".  Intervals are closed on both ends.
//
// Entries are kept in insertion order until the first query after a Put, at
// which point they are sorted by (start, end).  The index is meant to be built
// once and then queried; Put must not be called concurrently with queries.
// Queries may run concurrently with each other.
type ContainmentIndex struct {
	mu      sync.Mutex
	entries []entry
	sorted  bool
}

// Put inserts the interval [start, stop] with the given value.  start and stop
// may be given in either order.
func (x *ContainmentIndex) Put(start, stop PosType, value interface{}) {
	if stop < start {
		start, stop = stop, start
	}
	x.mu.Lock()
	x.entries = append(x.entries, entry{start: start, end: stop, value: value})
	x.sorted = false
	x.mu.Unlock()
}

// Len returns the number of intervals in the index.
func (x *ContainmentIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}

func (x *ContainmentIndex) ensureSorted() []entry {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.sorted {
		sort.SliceStable(x.entries, func(i, j int) bool {
			if x.entries[i].start != x.entries[j].start {
				return x.entries[i].start < x.entries[j].start
			}
			return x.entries[i].end < x.entries[j].end
		})
		x.sorted = true
	}
	return x.entries
}

// NestedError describes two intervals where the outer one strictly contains the
// inner one.
type NestedError struct {
	OuterStart, OuterEnd PosType
	InnerStart, InnerEnd PosType
	Outer, Inner         interface{}
}

// Error implements the error interface.
func (e *NestedError) Error() string {
	return fmt.Sprintf("interval [%d,%d] (%v) is nested inside [%d,%d] (%v)",
		e.InnerStart, e.InnerEnd, e.Inner, e.OuterStart, e.OuterEnd, e.Outer)
}

// Validate checks that no interval is strictly nested inside another one.
// Identical intervals are allowed.  It returns a *NestedError describing the
// first violation found.
func (x *ContainmentIndex) Validate() error {
	entries := x.ensureSorted()
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.start == cur.start && prev.end == cur.end {
			continue
		}
		if prev.start < cur.start && prev.end < cur.end {
			continue
		}
		// Sorted by (start, end): either the starts are equal and cur is the
		// longer interval, or cur ends at or before prev.
		outer, inner := prev, cur
		if prev.start == cur.start {
			outer, inner = cur, prev
		}
		return &NestedError{
			OuterStart: outer.start, OuterEnd: outer.end, Outer: outer.value,
			InnerStart: inner.start, InnerEnd: inner.end, Inner: inner.value,
		}
	}
	return nil
}

// QueryContaining returns the values of all intervals [s, e] such that s <=
// start and stop <= e.  start and stop may be given in either order.  The
// result is ordered by descending interval start.  An empty index yields an
// empty result.
//
// REQUIRES: Validate() returns nil.  With nested intervals the scan may stop
// before reaching an outer interval and the result is incomplete.
func (x *ContainmentIndex) QueryContaining(start, stop PosType) []interface{} {
	if stop < start {
		start, stop = stop, start
	}
	entries := x.ensureSorted()
	// Index of the rightmost entry with entry.start <= start.
	i := sort.Search(len(entries), func(i int) bool { return entries[i].start > start }) - 1
	var result []interface{}
	for ; i >= 0; i-- {
		if entries[i].end < stop {
			break
		}
		result = append(result, entries[i].value)
	}
	return result
}
