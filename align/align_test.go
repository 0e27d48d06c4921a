package align

import (
	"math/rand"
	"testing"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func randomSeq(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = "ACGT"[r.Intn(4)]
	}
	return string(b)
}

// TestUnitCostMatchesLevenshtein checks that with unit costs, the optimal
// global alignment score is the negated Levenshtein distance.
func TestUnitCostMatchesLevenshtein(t *testing.T) {
	tests := []struct {
		s1, s2 string
	}{
		{"ATCGGT", "ACGGTX"},
		{"ACAATTGG", "AXAAXTGX"},
		{"ATATACGGT", "ACGGTHIJK"},
		{"", "ACGT"},
		{"ACGT", ""},
		{"CTCAGCGGCT", "AGCCTAACTC"},
	}
	for _, test := range tests {
		a := Global(test.s1, test.s2, UnitCost)
		want := matchr.Levenshtein(test.s1, test.s2)
		expect.EQ(t, -a.Score, want, "%s vs %s", test.s1, test.s2)
		expect.EQ(t, a.EditDistance(), want, "%s vs %s", test.s1, test.s2)
	}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		s1 := randomSeq(r, r.Intn(30))
		s2 := randomSeq(r, r.Intn(30))
		a := Global(s1, s2, UnitCost)
		if !assert.Equal(t, matchr.Levenshtein(s1, s2), -a.Score, "%s vs %s", s1, s2) {
			return
		}
	}
}

func TestGlobalColumnsConsumeBothSequences(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		ref := randomSeq(r, 1+r.Intn(40))
		query := randomSeq(r, 1+r.Intn(40))
		a := Global(ref, query, DefaultScoring)
		nRef, nQuery := 0, 0
		for _, op := range a.Ops {
			if op.consumesReference() {
				nRef++
			}
			if op.consumesQuery() {
				nQuery++
			}
		}
		expect.EQ(t, nRef, len(ref))
		expect.EQ(t, nQuery, len(query))
	}
}

func TestCigarAndMD(t *testing.T) {
	tests := []struct {
		ref, query string
		cigar, md  string
		nm         int
	}{
		{"ACGTACGT", "ACGTACGT", "8M", "8", 0},
		{"ACGTACGT", "ACGAACGT", "8M", "3T4", 1},
		{"ACGTTACG", "ACGACG", "3M2D3M", "3^TT3", 2},
		{"ACGACG", "ACGTTACG", "3M2I3M", "6", 2},
	}
	for _, test := range tests {
		a := Global(test.ref, test.query, DefaultScoring)
		expect.EQ(t, a.Cigar().String(), test.cigar, "%s vs %s", test.ref, test.query)
		expect.EQ(t, a.MD(), test.md, "%s vs %s", test.ref, test.query)
		expect.EQ(t, a.EditDistance(), test.nm, "%s vs %s", test.ref, test.query)
	}
}

func TestReverse(t *testing.T) {
	a := Global("ACGTTACGGA", "ACGACGGA", DefaultScoring)
	rev := a.Reverse()
	expect.EQ(t, rev.Cigar().String(), a.ReverseCigar().String())
	expect.EQ(t, rev.Reference, "AGGCATTGCA")
	expect.EQ(t, rev.Query, "AGGCAGCA")
	expect.EQ(t, rev.Score, a.Score)
	expect.EQ(t, rev.Reverse().Ops, a.Ops)
}

func TestNormalizedScore(t *testing.T) {
	expect.EQ(t, Global("", "", DefaultScoring).NormalizedScore(), 0.0)
	a := Global("ACGT", "ACGT", DefaultScoring)
	expect.EQ(t, a.NormalizedScore(), 1.0)
	b := Global("AAAA", "CCCC", DefaultScoring)
	expect.True(t, b.NormalizedScore() < 0)
}

func TestSpan(t *testing.T) {
	a := Global("GGGACGTACGTGGG", "ACGTACGT", DefaultScoring)
	s, ok := a.Span()
	assert.True(t, ok)
	expect.EQ(t, s.RefStart, 3)
	expect.EQ(t, s.RefLen, 8)
	expect.EQ(t, s.Cigar.String(), "8M")
	expect.EQ(t, s.MD, "8")
	expect.EQ(t, s.NM, 0)

	// Query overhangs the reference on the right: the overhang is soft clipped.
	a = Global("ACGTACGT", "ACGTACGTTTT", DefaultScoring)
	s, ok = a.Span()
	assert.True(t, ok)
	expect.EQ(t, s.RefStart, 0)
	expect.EQ(t, s.RefLen, 8)
	expect.EQ(t, s.Cigar.String(), "8M3S")

	_, ok = Global("ACGT", "", DefaultScoring).Span()
	expect.False(t, ok)
}
