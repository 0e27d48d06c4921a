package dedup

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/align"
	"github.com/grailbio/uiddedup/biosimd"
	"github.com/grailbio/uiddedup/encoding/fastq"
	"github.com/grailbio/uiddedup/probe"
)

// MergedRead is the consensus of the two extended mates of a pair.
type MergedRead struct {
	// Record holds the merged bases in reference orientation, placed on the
	// capture target.  Its reverse flag follows the probe strand.
	Record *sam.Record
	// Read holds the merged bases in the orientation of the probe.
	Read fastq.Read
}

// Merger builds MergedReads.
type Merger struct {
	Scoring align.Scoring
	// AlignmentBuffer is the number of capture bases past the end of the
	// merged read included in its realignment.
	AlignmentBuffer int
}

// NewMerger returns a Merger configured from opts.
func NewMerger(opts *Opts) *Merger {
	return &Merger{Scoring: opts.Scoring, AlignmentBuffer: opts.AlignmentBuffer}
}

// MergePair merges the extended mates r1 and r2 of a pair assigned to p.
//
// The mate with the smaller position is upstream.  Bases are laid out from
// the upstream start, one per reference position.  Where the mates overlap
// the base with the higher quality wins, ties going to the upstream mate,
// and positions covered by neither mate are filled with N at quality 0.
// The result is realigned against the capture target to get its position,
// CIGAR, MD and NM.
func (m *Merger) MergePair(p *probe.Probe, r1, r2 *sam.Record) (MergedRead, error) {
	up, down := r1, r2
	if r2.Pos < r1.Pos {
		up, down = r2, r1
	}
	seq, qual, err := mergeBases(
		up.Pos+1, up.Seq.Expand(), recordQual(up),
		down.Pos+1, down.Seq.Expand(), recordQual(down))
	if err != nil {
		return MergedRead{}, fmt.Errorf("%s: %v", up.Name, err)
	}

	// The window starts at the merged read.  Leading reference bases would
	// let the first read base slide onto an equal reference base before it.
	start := up.Pos + 1
	winStart, winStop := start, start+len(seq)-1+m.AlignmentBuffer
	if winStart < p.Capture.Start {
		winStart = p.Capture.Start
	}
	if winStop > p.Capture.Stop {
		winStop = p.Capture.Stop
	}
	if winStart > winStop {
		return MergedRead{}, fmt.Errorf("%s: merged read at %d does not overlap capture %v", up.Name, start, p.Capture)
	}
	window := p.CaptureSeq[winStart-p.Capture.Start : winStop-p.Capture.Start+1]
	span, ok := align.Global(window, string(seq), m.Scoring).Span()
	if !ok {
		return MergedRead{}, fmt.Errorf("%s: merged read does not align to the capture target", up.Name)
	}

	out := copyRecord(up)
	out.Flags &^= sam.Paired | sam.ProperPair | sam.Read1 | sam.Read2 | sam.MateReverse | sam.MateUnmapped | sam.Reverse
	if p.Strand == probe.Reverse {
		out.Flags |= sam.Reverse
	}
	out.Pos = winStart - 1 + span.RefStart
	out.Cigar = span.Cigar
	out.Seq = sam.NewSeq(seq)
	out.Qual = qual
	out.MateRef, out.MatePos, out.TempLen = nil, -1, 0
	setAux(out, mdTag, span.MD)
	setAux(out, nmTag, span.NM)

	fseq, fqual := seq, qual
	if p.Strand == probe.Reverse {
		fseq = make([]byte, len(seq))
		biosimd.ReverseComp8(fseq, seq)
		fqual = make([]byte, len(qual))
		biosimd.ReverseQual8(fqual, qual)
	}
	return MergedRead{Record: out, Read: fastq.NewRead(up.Name, fseq, fqual)}, nil
}

// recordQual returns the Phred scores of r, or zeros if r has none.
func recordQual(r *sam.Record) []byte {
	if r.Qual != nil && len(r.Qual) == r.Seq.Length && (len(r.Qual) == 0 || r.Qual[0] != 0xff) {
		return r.Qual
	}
	return make([]byte, r.Seq.Length)
}

// mergeBases lays out two ungapped reads starting at the 1-based positions
// upStart <= downStart.  The result covers upStart to the last position of
// either read and consists of a lead (upstream only), an overlap, a gap
// (neither read) and a trail (the read that ends last), in that order.
func mergeBases(upStart int, upSeq, upQual []byte, downStart int, downSeq, downQual []byte) (seq, qual []byte, err error) {
	if downStart < upStart {
		return nil, nil, fmt.Errorf("downstream start %d precedes upstream start %d", downStart, upStart)
	}
	if len(upSeq) != len(upQual) || len(downSeq) != len(downQual) {
		return nil, nil, fmt.Errorf("sequence and quality lengths differ")
	}
	upStop := upStart + len(upSeq) - 1
	downStop := downStart + len(downSeq) - 1
	stop := upStop
	if downStop > stop {
		stop = downStop
	}
	var lead, overlap, gap, trail int
	seq = make([]byte, 0, stop-upStart+1)
	qual = make([]byte, 0, stop-upStart+1)
	for pos := upStart; pos <= stop; pos++ {
		inUp := pos <= upStop
		inDown := pos >= downStart && pos <= downStop
		switch {
		case inUp && inDown:
			overlap++
			i, j := pos-upStart, pos-downStart
			if downQual[j] > upQual[i] {
				seq, qual = append(seq, downSeq[j]), append(qual, downQual[j])
			} else {
				seq, qual = append(seq, upSeq[i]), append(qual, upQual[i])
			}
		case inUp:
			i := pos - upStart
			seq, qual = append(seq, upSeq[i]), append(qual, upQual[i])
			if pos < downStart {
				lead++
			} else {
				trail++
			}
		case inDown:
			j := pos - downStart
			seq, qual = append(seq, downSeq[j]), append(qual, downQual[j])
			trail++
		default:
			seq, qual = append(seq, 'N'), append(qual, 0)
			gap++
		}
	}
	if lead+overlap+gap+trail != len(seq) {
		return nil, nil, fmt.Errorf("merged regions %d+%d+%d+%d do not cover %d bases", lead, overlap, gap, trail, len(seq))
	}
	if want := downStart - upStop - 1; want > 0 && gap != want {
		return nil, nil, fmt.Errorf("gap of %d bases, expected %d", gap, want)
	}
	return seq, qual, nil
}
