package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Index is the path of the BAM index. If "", the path of the BAM file
	// + ".bai".
	Index string
}

// Provider reads the records of one alignment file.  Thread safe: the
// pipeline reads probe regions and the whole file concurrently.
type Provider interface {
	// GetHeader returns the header of the file.  The caller must not modify
	// it.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// NewRegionIterator returns an iterator over the mapped records on ref
	// whose alignment overlaps the half-open, 0-based range [start, limit),
	// in coordinate order.
	//
	// REQUIRES: Close has not been called.
	NewRegionIterator(ref *sam.Reference, start, limit int) Iterator

	// NewIterator returns an iterator over every record in the file, mapped
	// or not, in file order.
	//
	// REQUIRES: Close has not been called.
	NewIterator() Iterator

	// Close must be called exactly once, after every iterator is closed.  It
	// returns the first error seen by the provider or any of its iterators.
	Close() error
}

// Iterator iterates over sam.Records. Thread compatible.
type Iterator interface {
	// Scan advances to the next record and reports whether there is one.
	// It returns false at the end of the range, or on error; see Err.
	Scan() bool

	// Record returns the current record.  Valid only after Scan returned
	// true.
	Record() *sam.Record

	// Err returns the error that stopped the iteration, or nil at a normal
	// end.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// NewProvider creates a Provider for the BAM file at path.
func NewProvider(path string, opts ...ProviderOpts) Provider {
	p := &BAMProvider{Path: path}
	for _, o := range opts {
		if o.Index != "" {
			p.Index = o.Index
		}
	}
	return p
}

// region is a half-open, 0-based range on one reference.
type region struct {
	ref          *sam.Reference
	start, limit int
}

// overlaps reports whether rec is mapped on the region's reference and its
// alignment intersects the region.
func (g region) overlaps(rec *sam.Record) bool {
	if rec.Ref == nil || rec.Ref.ID() != g.ref.ID() || rec.Flags&sam.Unmapped != 0 {
		return false
	}
	return rec.Pos < g.limit && rec.End() > g.start
}

// past reports whether no record after rec can overlap the region, in a
// coordinate-sorted file.
func (g region) past(rec *sam.Record) bool {
	return rec.Ref == nil || rec.Ref.ID() > g.ref.ID() ||
		(rec.Ref.ID() == g.ref.ID() && rec.Pos >= g.limit)
}
