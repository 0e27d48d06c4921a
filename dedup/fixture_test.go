package dedup

import (
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/biosimd"
	"github.com/grailbio/uiddedup/probe"
)

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}

const refLen = 600

var (
	chr1, _      = sam.NewReference("chr1", "", "", refLen, nil, nil)
	chr2, _      = sam.NewReference("chr2", "", "", refLen, nil, nil)
	samHeader, _ = sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
	refSeq       = randomBases(rand.New(rand.NewSource(1)), refLen)
)

func randomBases(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = "ACGT"[r.Intn(4)]
	}
	return string(b)
}

// refBases returns the 1-based inclusive interval iv of refSeq.
func refBases(iv probe.Interval) string {
	return refSeq[iv.Start-1 : iv.Stop]
}

func newProbe(id string, strand probe.Strand, start int) *probe.Probe {
	left := probe.Interval{Start: start, Stop: start + 19}
	capture := probe.Interval{Start: start + 20, Stop: start + 119}
	right := probe.Interval{Start: start + 120, Stop: start + 139}
	p := &probe.Probe{ID: id, Chrom: "chr1", Strand: strand, Capture: capture}
	if strand == probe.Forward {
		p.Extension, p.Ligation = left, right
	} else {
		p.Extension, p.Ligation = right, left
	}
	p.ExtensionSeq = refBases(p.Extension)
	p.LigationSeq = refBases(p.Ligation)
	p.CaptureSeq = refBases(p.Capture)
	return p
}

// Forward probe with its footprint at 101-240, reverse probe at 301-440.
var (
	fwdProbe = newProbe("P1", probe.Forward, 101)
	revProbe = newProbe("P2", probe.Reverse, 301)
)

func newProbeSet(t *testing.T, probes ...*probe.Probe) *probe.Set {
	s, err := probe.NewSet(probes, 0)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// mateSpec describes a mate laid out as UID, primer and capture bases.
type mateSpec struct {
	uid string
	// captureLen is the number of capture bases after the primer.
	captureLen int
	qual       byte
}

// newMate builds a mate of p as sequenced: its UID and primer followed by
// the first (or, for a reverse mate, last) capture bases.  The UID is soft
// clipped.
func newMate(p *probe.Probe, name string, read1 bool, m mateSpec) *sam.Record {
	reverse := read1 == (p.Strand == probe.Reverse)
	primer := p.PrimerForMate(reverse)
	r := sam.GetFromFreePool()
	r.Name = name
	r.Ref, r.MateRef = chr1, chr1
	r.MapQ = 60
	r.Flags = sam.Paired | sam.ProperPair
	if read1 {
		r.Flags |= sam.Read1
	} else {
		r.Flags |= sam.Read2
	}
	aligned := len(primer.Seq) + m.captureLen
	var seq string
	if primer.AtStart {
		seq = m.uid + primer.Seq + p.CaptureSeq[:m.captureLen]
		r.Pos = primer.Start - 1
		r.Cigar = sam.Cigar{sam.NewCigarOp(sam.CigarSoftClipped, len(m.uid)), sam.NewCigarOp(sam.CigarMatch, aligned)}
		r.Flags |= sam.MateReverse
	} else {
		seq = p.CaptureSeq[len(p.CaptureSeq)-m.captureLen:] + primer.Seq + biosimd.ReverseComplement(m.uid)
		r.Pos = p.Capture.Stop - m.captureLen
		r.Cigar = sam.Cigar{sam.NewCigarOp(sam.CigarMatch, aligned), sam.NewCigarOp(sam.CigarSoftClipped, len(m.uid))}
		r.Flags |= sam.Reverse
	}
	r.Seq = sam.NewSeq([]byte(seq))
	r.Qual = []byte(strings.Repeat(string([]byte{m.qual}), len(seq)))
	return r
}

// newPair returns R1 and R2 of a pair of p with UIDs uid1 and uid2.
func newPair(p *probe.Probe, name, uid1, uid2 string, qual byte) (*sam.Record, *sam.Record) {
	r1 := newMate(p, name, true, mateSpec{uid: uid1, captureLen: 60, qual: qual})
	r2 := newMate(p, name, false, mateSpec{uid: uid2, captureLen: 60, qual: qual})
	return r1, r2
}

func uid(base string) string {
	return strings.Repeat(base, 14)
}

func testOpts() Opts {
	opts := DefaultOpts
	opts.Parallelism = 2
	return opts
}
