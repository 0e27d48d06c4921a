package probe

import (
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/uiddedup/encoding/fasta"
	"github.com/stretchr/testify/assert"
)

const header = "probe_id\tchromosome\tprobe_strand\textension_primer_start\textension_primer_stop\t" +
	"ligation_primer_start\tligation_primer_stop\tcapture_target_start\tcapture_target_stop\t" +
	"extension_primer_sequence\tligation_primer_sequence\tcapture_target_sequence\n"

var (
	chr1, _     = sam.NewReference("chr1", "", "", 100, nil, nil)
	samHeader, _ = sam.NewHeader(nil, []*sam.Reference{chr1})
)

func TestRead(t *testing.T) {
	table := header +
		"P1\tchr1\t+\t1\t4\t13\t16\t5\t12\tacgt\t\tAAAACCCC\n" +
		"# comment\n" +
		"P2\tchr1\t-\t37\t40\t21\t24\t25\t36\t\t\t\n"
	probes, err := Read(strings.NewReader(table))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(probes))

	p1 := probes[0]
	expect.EQ(t, p1.ID, "P1")
	expect.EQ(t, p1.Strand, Forward)
	expect.EQ(t, p1.ExtensionSeq, "ACGT")
	expect.EQ(t, p1.Footprint(), Interval{1, 16})
	expect.EQ(t, p1.LeftPrimer().Extension, true)
	expect.EQ(t, p1.RightPrimer().Interval, Interval{13, 16})
	expect.EQ(t, p1.PrimerForMate(false).AtStart, true)

	p2 := probes[1]
	expect.EQ(t, p2.Strand, Reverse)
	expect.EQ(t, p2.LeftPrimer().Interval, Interval{21, 24})
	expect.EQ(t, p2.LeftPrimer().Extension, false)
	expect.EQ(t, p2.PrimerForMate(true).Interval, Interval{37, 40})
	expect.EQ(t, p2.PrimerForMate(true).Extension, true)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		table string
		errRe string
	}{
		{header, "no probes"},
		{header + "P1\tchr1\tx\t1\t4\t13\t16\t5\t12\t\t\t\n", "invalid strand"},
		{header + "P1\tchr1\t+\t1\t4\t13\t16\t5\t12\t\t\t\nP1\tchr1\t+\t1\t4\t13\t16\t5\t12\t\t\t\n", "duplicate probe id"},
		{"id\tchrom\n", "probe table"},
	}
	for _, test := range tests {
		_, err := Read(strings.NewReader(test.table))
		assert.Regexp(t, test.errRe, err)
	}
}

func TestFillAndValidate(t *testing.T) {
	ref, err := fasta.New(strings.NewReader(">chr1\nACGTAAAACCCCGGTT\n"))
	assert.NoError(t, err)
	p := &Probe{
		ID: "P1", Chrom: "chr1", Strand: Forward,
		Extension: Interval{1, 4}, Capture: Interval{5, 12}, Ligation: Interval{13, 16},
	}
	assert.NoError(t, p.FillSequences(ref))
	expect.EQ(t, p.ExtensionSeq, "ACGT")
	expect.EQ(t, p.CaptureSeq, "AAAACCCC")
	expect.EQ(t, p.LigationSeq, "GGTT")
	assert.NoError(t, p.Validate(samHeader))

	bad := *p
	bad.Chrom = "chr2"
	assert.Regexp(t, "not in the alignment header", bad.Validate(samHeader))

	bad = *p
	bad.Ligation = Interval{95, 110}
	assert.Regexp(t, "outside chr1", bad.Validate(samHeader))

	bad = *p
	bad.CaptureSeq = "AAA"
	assert.Regexp(t, "capture target sequence has length 3", bad.Validate(samHeader))

	bad = *p
	bad.Strand = Reverse
	assert.Regexp(t, "do not flank", bad.Validate(samHeader))
}

func newTestProbe(id string, start, stop int) *Probe {
	return &Probe{
		ID: id, Chrom: "chr1", Strand: Forward,
		Extension: Interval{start, start + 3},
		Capture:   Interval{start + 4, stop - 4},
		Ligation:  Interval{stop - 3, stop},
	}
}

func TestSet(t *testing.T) {
	a := newTestProbe("a", 10, 40)
	b := newTestProbe("b", 30, 60)
	c := newTestProbe("c", 100, 140)
	s, err := NewSet([]*Probe{a, b, c}, 0)
	assert.NoError(t, err)
	expect.EQ(t, s.Chroms, []string{"chr1"})
	expect.EQ(t, s.ForChrom("chr1"), []*Probe{a, b, c})
	expect.EQ(t, len(s.Containing("chr1", 32, 38)), 2)
	expect.EQ(t, s.Containing("chr1", 12, 38), []*Probe{a})
	expect.EQ(t, len(s.Containing("chr1", 35, 70)), 0)
	expect.EQ(t, len(s.Containing("chr2", 12, 38)), 0)
	expect.True(t, s.Contains(b, 41, 60))
	expect.False(t, s.Contains(a, 41, 60))

	padded, err := NewSet([]*Probe{a, b, c}, 5)
	assert.NoError(t, err)
	expect.EQ(t, padded.Window(a), Interval{5, 45})
	expect.True(t, padded.Contains(c, 95, 145))
}

func TestSetRejectsNesting(t *testing.T) {
	outer := newTestProbe("outer", 10, 100)
	inner := newTestProbe("inner", 20, 50)
	_, err := NewSet([]*Probe{outer, inner}, 0)
	assert.Regexp(t, "probe inner is nested inside probe outer", err)
}
