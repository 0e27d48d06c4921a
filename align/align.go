// Package align implements the pairwise global (Needleman-Wunsch) alignment
// used to locate primers in reads and to place reads on capture targets.
//
// Sequences are compared byte-wise; callers are expected to pass upper-case
// ASCII bases.
package align

import (
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// Scoring defines a linear-gap scoring scheme.  Mismatch and Gap are added to
// the score, so they are normally negative.
type Scoring struct {
	Match    int
	Mismatch int
	Gap      int
}

// DefaultScoring is the scoring scheme used when none is configured.
var DefaultScoring = Scoring{Match: 1, Mismatch: -1, Gap: -2}

// UnitCost scores every edit as -1 and every match as 0, so that -Score equals
// the Levenshtein distance between the two sequences.
var UnitCost = Scoring{Match: 0, Mismatch: -1, Gap: -1}

// Op is one alignment column.
type Op uint8

const (
	// Match is a column where reference and query bases are equal.
	Match Op = iota
	// Mismatch is a column where reference and query bases differ.
	Mismatch
	// Insertion is a query base aligned against a reference gap.
	Insertion
	// Deletion is a reference base aligned against a query gap.
	Deletion
)

// consumesReference returns true if the column contains a reference base.
func (o Op) consumesReference() bool { return o != Insertion }

// consumesQuery returns true if the column contains a query base.
func (o Op) consumesQuery() bool { return o != Deletion }

// String returns a one-letter code for the column.
func (o Op) String() string {
	switch o {
	case Match:
		return "="
	case Mismatch:
		return "X"
	case Insertion:
		return "I"
	case Deletion:
		return "D"
	}
	return "?"
}

// Alignment is the result of a global alignment.
type Alignment struct {
	Reference string
	Query     string
	Score     int
	Ops       []Op
}

// Global aligns query against reference end to end.
func Global(reference, query string, sc Scoring) Alignment {
	m := getMatrix(len(reference)+1, len(query)+1)
	m.fill(reference, query, sc)
	a := Alignment{
		Reference: reference,
		Query:     query,
		Score:     m.data[len(m.data)-1],
		Ops:       m.traceback(reference, query),
	}
	putMatrix(m)
	return a
}

// NormalizedScore returns the score divided by the number of columns.  It is
// zero for an empty alignment.
func (a Alignment) NormalizedScore() float64 {
	if len(a.Ops) == 0 {
		return 0
	}
	return float64(a.Score) / float64(len(a.Ops))
}

// Reverse returns the alignment of the reversed reference and the reversed
// query.  Columns are reversed, the score is unchanged.
func (a Alignment) Reverse() Alignment {
	ops := make([]Op, len(a.Ops))
	for i, op := range a.Ops {
		ops[len(ops)-1-i] = op
	}
	return Alignment{
		Reference: reverseString(a.Reference),
		Query:     reverseString(a.Query),
		Score:     a.Score,
		Ops:       ops,
	}
}

// EditDistance returns the number of mismatch, insertion and deletion columns.
func (a Alignment) EditDistance() int {
	n := 0
	for _, op := range a.Ops {
		if op != Match {
			n++
		}
	}
	return n
}

// Cigar returns the alignment columns as CIGAR operations, with matches and
// mismatches both reported as M.
func (a Alignment) Cigar() sam.Cigar {
	return opsToCigar(len(a.Ops), func(i int) Op { return a.Ops[i] })
}

// ReverseCigar returns Cigar() of the reversed alignment.
func (a Alignment) ReverseCigar() sam.Cigar {
	n := len(a.Ops)
	return opsToCigar(n, func(i int) Op { return a.Ops[n-1-i] })
}

// MD returns the SAM MD description of mismatched and deleted reference bases.
func (a Alignment) MD() string {
	return mdString(a.Reference, a.Ops)
}

func opsToCigar(n int, at func(i int) Op) sam.Cigar {
	var cigar sam.Cigar
	var curType sam.CigarOpType
	curLen := 0
	for i := 0; i < n; i++ {
		t := cigarType(at(i))
		if curLen > 0 && t != curType {
			cigar = append(cigar, sam.NewCigarOp(curType, curLen))
			curLen = 0
		}
		curType = t
		curLen++
	}
	if curLen > 0 {
		cigar = append(cigar, sam.NewCigarOp(curType, curLen))
	}
	return cigar
}

func cigarType(op Op) sam.CigarOpType {
	switch op {
	case Insertion:
		return sam.CigarInsertion
	case Deletion:
		return sam.CigarDeletion
	default:
		return sam.CigarMatch
	}
}

// mdString computes the MD string for ops, whose reference bases are read from
// reference starting at offset 0.
func mdString(reference string, ops []Op) string {
	var b strings.Builder
	run := 0
	inDeletion := false
	ri := 0
	for _, op := range ops {
		switch op {
		case Match:
			run++
			inDeletion = false
		case Mismatch:
			b.WriteString(strconv.Itoa(run))
			b.WriteByte(reference[ri])
			run = 0
			inDeletion = false
		case Deletion:
			if !inDeletion {
				b.WriteString(strconv.Itoa(run))
				b.WriteByte('^')
				run = 0
			}
			b.WriteByte(reference[ri])
			inDeletion = true
		case Insertion:
			// Insertions are not part of MD, and do not break a deletion run
			// in the reference.
		}
		if op.consumesReference() {
			ri++
		}
	}
	b.WriteString(strconv.Itoa(run))
	return b.String()
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
