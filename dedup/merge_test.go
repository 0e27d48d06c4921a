package dedup

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/uiddedup/biosimd"
	"github.com/grailbio/uiddedup/encoding/fastq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quals(q byte, n int) []byte {
	return bytes.Repeat([]byte{q}, n)
}

func TestMergeBases(t *testing.T) {
	h := byte('H' - fastq.PhredOffset)
	tests := []struct {
		downStart int
		want      string
		wantQual  []byte
	}{
		// Overlap of two bases.
		{16, "AACCGGTTGGAACC", quals(h, 14)},
		// Adjacent.
		{18, "AACCGGTTTTGGAACC", quals(h, 16)},
		// Gap of four bases.
		{22, "AACCGGTTNNNNTTGGAACC", append(append(quals(h, 8), quals(0, 4)...), quals(h, 8)...)},
		// Gap of two bases.
		{20, "AACCGGTTNNTTGGAACC", append(append(quals(h, 8), quals(0, 2)...), quals(h, 8)...)},
		// Downstream contained in upstream.
		{10, "AACCGGTT", quals(h, 8)},
	}
	for _, test := range tests {
		up, down := []byte("AACCGGTT"), []byte("TTGGAACC")
		if test.downStart == 10 {
			down = []byte("AACC")
		}
		seq, qual, err := mergeBases(10, up, quals(h, len(up)), test.downStart, down, quals(h, len(down)))
		require.NoError(t, err)
		expect.EQ(t, string(seq), test.want, "down start %d", test.downStart)
		expect.EQ(t, qual, test.wantQual, "down start %d", test.downStart)
	}

	_, _, err := mergeBases(10, []byte("ACGT"), quals(30, 4), 9, []byte("ACGT"), quals(30, 4))
	assert.Error(t, err)
	_, _, err = mergeBases(10, []byte("ACGT"), quals(30, 3), 12, []byte("ACGT"), quals(30, 4))
	assert.Error(t, err)
}

func TestMergeQualityArbitration(t *testing.T) {
	up, down := []byte("AAAAAAAA"), []byte("CCCCCCCC")
	upQual := []byte{30, 30, 30, 30, 10, 30, 20, 40}
	downQual := []byte{20, 30, 25, 10, 30, 30, 30, 30}
	seq, qual, err := mergeBases(1, up, upQual, 5, down, downQual)
	require.NoError(t, err)
	// Overlap at 5-8: up 10/30/20/40 against down 20/30/25/10.
	expect.EQ(t, string(seq), "AAAACACACCCC")
	expect.EQ(t, qual, []byte{30, 30, 30, 30, 20, 30, 25, 40, 30, 30, 30, 30})
}

// Every position from the upstream start to the last end appears exactly
// once, and comes from a read covering it, or is N when none does.
func TestMergeCoverage(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for i := 0; i < 1000; i++ {
		upStart := 1 + r.Intn(50)
		downStart := upStart + r.Intn(80)
		up := []byte(randomBases(r, 1+r.Intn(40)))
		down := []byte(randomBases(r, 1+r.Intn(40)))
		upQual := make([]byte, len(up))
		downQual := make([]byte, len(down))
		r.Read(upQual)
		r.Read(downQual)
		for j := range upQual {
			upQual[j] %= 42
		}
		for j := range downQual {
			downQual[j] %= 42
		}
		seq, qual, err := mergeBases(upStart, up, upQual, downStart, down, downQual)
		require.NoError(t, err)

		upStop, downStop := upStart+len(up)-1, downStart+len(down)-1
		stop := upStop
		if downStop > stop {
			stop = downStop
		}
		require.Equal(t, stop-upStart+1, len(seq))
		require.Equal(t, len(seq), len(qual))
		for k := range seq {
			pos := upStart + k
			inUp := pos <= upStop
			inDown := pos >= downStart && pos <= downStop
			switch {
			case inUp && inDown:
				i, j := pos-upStart, pos-downStart
				if downQual[j] > upQual[i] {
					require.Equal(t, down[j], seq[k])
				} else {
					require.Equal(t, up[i], seq[k])
				}
			case inUp:
				require.Equal(t, up[pos-upStart], seq[k])
			case inDown:
				require.Equal(t, down[pos-downStart], seq[k])
			default:
				require.Equal(t, byte('N'), seq[k])
				require.Equal(t, byte(0), qual[k])
			}
		}
	}
}

func extendedPair(t *testing.T, name string, r1, r2 *sam.Record) (*sam.Record, *sam.Record) {
	ext := NewExtender(&DefaultOpts)
	p := fwdProbe
	if r1.Flags&sam.Reverse != 0 {
		p = revProbe
	}
	pair := &AlignedPair{R1: r1, R2: r2, ExtensionUID: uid("A"), LigationUID: uid("C")}
	e1, e2 := ext.ExtendPair(p, pair)
	require.True(t, e1.OK(), "%s: %s", name, e1.Detail)
	require.True(t, e2.OK(), "%s: %s", name, e2.Detail)
	return e1.Record, e2.Record
}

func TestMergePair(t *testing.T) {
	merger := NewMerger(&DefaultOpts)

	r1, r2 := newPair(fwdProbe, "a", uid("A"), uid("C"), 30)
	e1, e2 := extendedPair(t, "a", r1, r2)
	m, err := merger.MergePair(fwdProbe, e1, e2)
	require.NoError(t, err)
	rec := m.Record
	expect.EQ(t, rec.Pos, fwdProbe.Capture.Start-1)
	expect.EQ(t, string(rec.Seq.Expand()), fwdProbe.CaptureSeq)
	expect.EQ(t, rec.Cigar, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 100)})
	expect.EQ(t, rec.Flags&(sam.Paired|sam.Read1|sam.Read2|sam.Reverse), sam.Flags(0))
	expect.EQ(t, rec.MatePos, -1)
	expect.EQ(t, m.Read.ID, "@a")
	expect.EQ(t, m.Read.Seq, fwdProbe.CaptureSeq)

	r1, r2 = newPair(revProbe, "b", uid("A"), uid("C"), 30)
	e1, e2 = extendedPair(t, "b", r1, r2)
	m, err = merger.MergePair(revProbe, e1, e2)
	require.NoError(t, err)
	rec = m.Record
	expect.EQ(t, rec.Pos, revProbe.Capture.Start-1)
	expect.EQ(t, string(rec.Seq.Expand()), revProbe.CaptureSeq)
	assert.True(t, rec.Flags&sam.Reverse != 0)
	expect.EQ(t, m.Read.Seq, biosimd.ReverseComplement(revProbe.CaptureSeq))
}

func TestMergePairWithGap(t *testing.T) {
	merger := NewMerger(&DefaultOpts)
	r1 := newMate(fwdProbe, "g", true, mateSpec{uid: uid("A"), captureLen: 40, qual: 30})
	r2 := newMate(fwdProbe, "g", false, mateSpec{uid: uid("C"), captureLen: 40, qual: 30})
	e1, e2 := extendedPair(t, "g", r1, r2)
	m, err := merger.MergePair(fwdProbe, e1, e2)
	require.NoError(t, err)
	seq := string(m.Record.Seq.Expand())
	expect.EQ(t, len(seq), 100)
	expect.EQ(t, seq[:40], fwdProbe.CaptureSeq[:40])
	expect.EQ(t, seq[40:60], "NNNNNNNNNNNNNNNNNNNN")
	expect.EQ(t, seq[60:], fwdProbe.CaptureSeq[60:])
	expect.EQ(t, m.Record.Qual[50], byte(0))
	expect.EQ(t, m.Record.Pos, fwdProbe.Capture.Start-1)
}
