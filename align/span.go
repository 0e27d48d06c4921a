package align

import (
	"github.com/grailbio/hts/sam"
)

// Span describes where a query lands on the reference once the gap columns
// before the first and after the last aligned base pair are removed.
// Query bases in those end columns become soft clips, reference bases in them
// are skipped.
type Span struct {
	// RefStart is the number of reference bases before the first aligned base
	// pair.
	RefStart int
	// RefLen is the number of reference bases between the first and the last
	// aligned base pair, inclusive.
	RefLen int
	// Cigar covers the whole query, with soft clips at both ends as needed.
	Cigar sam.Cigar
	// MD and NM describe the reference-consuming part of the alignment.
	MD string
	NM int
}

// Span computes the Span of the alignment.  It returns false if the alignment
// has no aligned base pair, i.e. the query is all insertions or empty.
func (a Alignment) Span() (Span, bool) {
	first, last := -1, -1
	for i, op := range a.Ops {
		if op == Match || op == Mismatch {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return Span{}, false
	}

	var s Span
	leadClip, trailClip := 0, 0
	for _, op := range a.Ops[:first] {
		if op.consumesReference() {
			s.RefStart++
		} else {
			leadClip++
		}
	}
	for _, op := range a.Ops[last+1:] {
		if op.consumesQuery() {
			trailClip++
		}
	}
	core := a.Ops[first : last+1]
	for _, op := range core {
		if op.consumesReference() {
			s.RefLen++
		}
		if op != Match {
			s.NM++
		}
	}

	if leadClip > 0 {
		s.Cigar = append(s.Cigar, sam.NewCigarOp(sam.CigarSoftClipped, leadClip))
	}
	s.Cigar = append(s.Cigar, opsToCigar(len(core), func(i int) Op { return core[i] })...)
	if trailClip > 0 {
		s.Cigar = append(s.Cigar, sam.NewCigarOp(sam.CigarSoftClipped, trailClip))
	}
	s.MD = mdString(a.Reference[s.RefStart:], core)
	return s, true
}
