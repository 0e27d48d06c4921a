package dedup

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/align"
	"github.com/grailbio/uiddedup/biosimd"
	"github.com/grailbio/uiddedup/probe"
)

// uidParser extracts UIDs from the 5' end of reads.
type uidParser struct {
	opts *Opts
}

// parse sets the UIDs of pair.  It returns an error if either UID cannot be
// determined.
func (u uidParser) parse(p *probe.Probe, pair *AlignedPair) error {
	var err error
	if pair.ExtensionUID, err = u.mateUID(p, pair.R1, u.opts.ExtensionUIDLength); err != nil {
		return fmt.Errorf("R1: %v", err)
	}
	if pair.LigationUID, err = u.mateUID(p, pair.R2, u.opts.LigationUIDLength); err != nil {
		return fmt.Errorf("R2: %v", err)
	}
	return nil
}

func (u uidParser) mateUID(p *probe.Probe, r *sam.Record, fixedLen int) (string, error) {
	seq, _ := readOrientation(r)
	if !u.opts.VariableUIDs {
		if len(seq) < fixedLen {
			return "", fmt.Errorf("read length %d is shorter than the UID", len(seq))
		}
		return string(seq[:fixedLen]), nil
	}
	primer := p.PrimerForMate(isReverse(r))
	primerSeq := primer.Seq
	if !primer.AtStart {
		primerSeq = biosimd.ReverseComplement(primerSeq)
	}
	n := u.opts.MaxUIDLength + len(primerSeq) + u.opts.AlignmentBuffer
	if n > len(seq) {
		n = len(seq)
	}
	prefix := string(seq[:n])
	span, ok := align.Global(prefix, primerSeq, u.opts.Scoring).Span()
	if !ok {
		return "", fmt.Errorf("primer not found")
	}
	// Gap columns are placed as late as possible, so the first primer base
	// can land on a UID base equal to it.  The end of the primer is stable;
	// count back from there.
	n = span.RefStart + span.RefLen - len(primerSeq)
	if n < 1 || n > u.opts.MaxUIDLength {
		return "", fmt.Errorf("UID length %d outside [1,%d]", n, u.opts.MaxUIDLength)
	}
	return prefix[:n], nil
}
