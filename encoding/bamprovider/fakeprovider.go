package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// fakeProvider serves in-memory records, for unittests.
type fakeProvider struct {
	header *sam.Header
	recs   []*sam.Record
}

// NewFakeProvider creates a provider with the given header and records.  recs
// should be sorted by coordinate, as in a real BAM file, with unmapped records
// last.
func NewFakeProvider(header *sam.Header, recs []*sam.Record) Provider {
	return &fakeProvider{header, recs}
}

func (b *fakeProvider) GetHeader() (*sam.Header, error) { return b.header, nil }
func (b *fakeProvider) Close() error                    { return nil }

func (b *fakeProvider) NewRegionIterator(ref *sam.Reference, start, limit int) Iterator {
	return &fakeIterator{recs: b.recs, reg: region{ref: ref, start: start, limit: limit}}
}

func (b *fakeProvider) NewIterator() Iterator {
	return &fakeIterator{recs: b.recs}
}

type fakeIterator struct {
	recs []*sam.Record
	rec  *sam.Record
	// reg.ref==nil means all records.
	reg region
}

func (i *fakeIterator) Err() error   { return nil }
func (i *fakeIterator) Close() error { return nil }

func (i *fakeIterator) Scan() bool {
	for len(i.recs) > 0 {
		i.rec, i.recs = i.recs[0], i.recs[1:]
		if i.reg.ref == nil || i.reg.overlaps(i.rec) {
			return true
		}
	}
	return false
}

// Record returns a deep copy of the current record, so that the code under
// test cannot alter the test input.
func (i *fakeIterator) Record() *sam.Record {
	r := sam.GetFromFreePool()
	*r = *i.rec
	r.Seq = sam.Seq{Length: i.rec.Seq.Length, Seq: append(i.rec.Seq.Seq[:0:0], i.rec.Seq.Seq...)}
	r.Qual = append(i.rec.Qual[:0:0], i.rec.Qual...)
	r.Cigar = append(i.rec.Cigar[:0:0], i.rec.Cigar...)
	r.AuxFields = append(i.rec.AuxFields[:0:0], i.rec.AuxFields...)
	return r
}
