package dedup

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/align"
	"github.com/grailbio/uiddedup/biosimd"
	"github.com/grailbio/uiddedup/probe"
)

// Reasons for a failed extension, used as XX tag values.
const (
	FailReadTooShort = "read_too_short"
	FailPrimer       = "primer_not_found"
	FailCapture      = "capture_misaligned"
)

// ExtensionOutcome is the result of extending one mate.  Exactly one of
// Record and Failure is set.
type ExtensionOutcome struct {
	// Record is the extended copy of the mate.
	Record *sam.Record
	// Failure is one of the Fail* constants.
	Failure string
	// Detail describes the failure, for logging.
	Detail string
}

// OK checks if the extension succeeded.
func (o ExtensionOutcome) OK() bool {
	return o.Record != nil
}

func failed(reason, format string, args ...interface{}) ExtensionOutcome {
	return ExtensionOutcome{Failure: reason, Detail: fmt.Sprintf(format, args...)}
}

// Extender rewrites mates so that they start right after their primer.
type Extender struct {
	Scoring align.Scoring
	// AlignmentBuffer is the number of bases beyond the primer, or beyond the
	// read, included in each alignment.
	AlignmentBuffer int
	// AcceptanceBuffer is the largest accepted distance between the aligned
	// end of the primer in the read and the primer length.
	AcceptanceBuffer int
}

// NewExtender returns an Extender configured from opts.
func NewExtender(opts *Opts) *Extender {
	return &Extender{
		Scoring:          opts.Scoring,
		AlignmentBuffer:  opts.AlignmentBuffer,
		AcceptanceBuffer: opts.AcceptanceBuffer,
	}
}

// ExtendPair extends both mates of pair.  On success of both, the mate
// fields of the two extended records point at each other.
func (e *Extender) ExtendPair(p *probe.Probe, pair *AlignedPair) (r1, r2 ExtensionOutcome) {
	r1 = e.ExtendMate(p, pair.R1, len(pair.ExtensionUID))
	r2 = e.ExtendMate(p, pair.R2, len(pair.LigationUID))
	if r1.OK() && r2.OK() {
		setMateFields(r1.Record, r2.Record)
	}
	return r1, r2
}

// ExtendMate removes the UID and the primer from r and places the remaining
// bases on the capture target of p.
//
// A forward mate carries its UID and primer at the start of its stored
// sequence, a reverse mate at the end.  The mate is oriented so that the
// primer comes first (a reverse mate, its primer and the capture target are
// reversed, not complemented), and the primer is aligned against the first
// len(primer)+AlignmentBuffer bases.  Trailing read bases outside the primer
// are skipped to find where the primer ends; the extension fails unless that
// is within AcceptanceBuffer of the primer length.  The rest of the read is
// then aligned against the capture target, and must have a positive
// normalized score.
func (e *Extender) ExtendMate(p *probe.Probe, r *sam.Record, uidLen int) ExtensionOutcome {
	primer := p.PrimerForMate(isReverse(r))
	seq := mateSeq(r)
	if len(seq) <= uidLen {
		return failed(FailReadTooShort, "read length %d, UID length %d", len(seq), uidLen)
	}
	// Stored bases after removing the UID, oriented so that the primer is
	// first.
	var body []byte
	primerSeq, captureSeq := primer.Seq, p.CaptureSeq
	if primer.AtStart {
		body = seq[uidLen:]
	} else {
		body = []byte(biosimd.Reverse(string(seq[:len(seq)-uidLen])))
		primerSeq = biosimd.Reverse(primerSeq)
		captureSeq = biosimd.Reverse(captureSeq)
	}

	n := len(primerSeq) + e.AlignmentBuffer
	if n > len(body) {
		n = len(body)
	}
	pa := align.Global(primerSeq, string(body[:n]), e.Scoring)
	boundary := primerEnd(pa)
	if d := boundary - len(primerSeq); d > e.AcceptanceBuffer || -d > e.AcceptanceBuffer {
		// Report the primer alignment in reference orientation.
		cigar := pa.Cigar()
		if !primer.AtStart {
			cigar = pa.ReverseCigar()
		}
		return failed(FailPrimer, "primer ends at read base %d, primer length %d, alignment %v",
			boundary, len(primerSeq), cigar)
	}
	rest := body[boundary:]
	if len(rest) == 0 {
		return failed(FailReadTooShort, "no bases after the primer")
	}

	w := len(rest) + e.AlignmentBuffer
	if w > len(captureSeq) {
		w = len(captureSeq)
	}
	a := align.Global(captureSeq[:w], string(rest), e.Scoring)
	if a.NormalizedScore() <= 0 {
		return failed(FailCapture, "normalized capture alignment score %.3f", a.NormalizedScore())
	}

	// Back to reference orientation.  lo:hi is the range of stored bases that
	// remain.
	var windowStart, lo, hi int
	if primer.AtStart {
		windowStart = p.Capture.Start
		lo, hi = uidLen+boundary, len(seq)
	} else {
		a = a.Reverse()
		windowStart = p.Capture.Stop - w + 1
		lo, hi = 0, len(seq)-uidLen-boundary
	}
	span, ok := a.Span()
	if !ok {
		return failed(FailCapture, "no aligned bases on the capture target")
	}

	out := copyRecord(r)
	out.Pos = windowStart - 1 + span.RefStart
	out.Cigar = span.Cigar
	out.Seq = sam.NewSeq(seq[lo:hi])
	if len(r.Qual) == len(seq) {
		out.Qual = append([]byte(nil), r.Qual[lo:hi]...)
	} else {
		out.Qual = nil
	}
	setAux(out, mdTag, span.MD)
	setAux(out, nmTag, span.NM)
	return ExtensionOutcome{Record: out}
}

// primerEnd returns the number of read bases aligned to the primer, where a
// is the alignment of the primer (reference) against a read prefix (query).
// Trailing columns holding only read bases are skipped.
func primerEnd(a align.Alignment) int {
	end := len(a.Ops)
	for end > 0 && a.Ops[end-1] == align.Insertion {
		end--
	}
	n := 0
	for _, op := range a.Ops[:end] {
		if op != align.Deletion {
			n++
		}
	}
	return n
}

// copyRecord returns a copy of r that shares no slices with it.
func copyRecord(r *sam.Record) *sam.Record {
	c := sam.GetFromFreePool()
	*c = *r
	c.Cigar = append(sam.Cigar(nil), r.Cigar...)
	c.Qual = append([]byte(nil), r.Qual...)
	c.AuxFields = append(sam.AuxFields(nil), r.AuxFields...)
	c.Seq = sam.NewSeq(r.Seq.Expand())
	return c
}

// setMateFields points the mate fields of a and b at each other and sets
// their template lengths.
func setMateFields(a, b *sam.Record) {
	a.MateRef, a.MatePos = b.Ref, b.Pos
	b.MateRef, b.MatePos = a.Ref, a.Pos
	start, end := a.Pos, a.End()
	if b.Pos < start {
		start = b.Pos
	}
	if e := b.End(); e > end {
		end = e
	}
	tlen := end - start
	if a.Pos < b.Pos || (a.Pos == b.Pos && a.Flags&sam.Read1 != 0) {
		a.TempLen, b.TempLen = tlen, -tlen
	} else {
		a.TempLen, b.TempLen = -tlen, tlen
	}
}
