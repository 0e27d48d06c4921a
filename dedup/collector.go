package dedup

import (
	"sort"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/encoding/bamprovider"
	"github.com/grailbio/uiddedup/probe"
)

// ProbeReads holds the complete read pairs assigned to one probe.
type ProbeReads struct {
	Probe *probe.Probe
	// Pairs maps read names to complete pairs.
	Pairs map[string]*AlignedPair

	// Records is the number of records read from the probe's window.
	Records int
	// Filtered is the number of records dropped for their flags, strand or
	// position.
	Filtered int
	// Incomplete is the number of read names seen with only one mate.
	Incomplete int
}

// Names returns the read names of the pairs, sorted.
func (r *ProbeReads) Names() []string {
	names := make([]string, 0, len(r.Pairs))
	for name := range r.Pairs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectProbeReads reads the records in the window of p and pairs them by
// read name.  A record is kept only if
//
//   - it is a primary, mapped, paired record with a mapped mate,
//   - R1 is on the strand of the probe and R2 on the opposite strand, and
//   - its aligned interval is contained in the window of p, as answered by
//     the containment index of probes.  The alignment may start up to
//     uidSlack bases before the window on the primer side of the mate, where
//     the aligner extended it into UID bases that happen to match the
//     reference.
//
// Read names with a single kept mate are dropped.  The returned error is
// the iterator's.
func CollectProbeReads(p *probe.Probe, probes *probe.Set, provider bamprovider.Provider, ref *sam.Reference, uidSlack int) (*ProbeReads, error) {
	reads := &ProbeReads{Probe: p, Pairs: map[string]*AlignedPair{}}
	if ref == nil {
		return reads, nil
	}
	w := probes.Window(p)
	partial := map[string]*AlignedPair{}
	iter := provider.NewRegionIterator(ref, w.Start-1, w.Stop)
	for iter.Scan() {
		r := iter.Record()
		reads.Records++
		if !keepRecord(p, probes, r, uidSlack) {
			reads.Filtered++
			continue
		}
		pair := partial[r.Name]
		if pair == nil {
			pair = &AlignedPair{}
			partial[r.Name] = pair
		}
		if r.Flags&sam.Read1 != 0 {
			if pair.R1 == nil {
				pair.R1 = r
			}
		} else if pair.R2 == nil {
			pair.R2 = r
		}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	for name, pair := range partial {
		if pair.R1 == nil || pair.R2 == nil {
			reads.Incomplete++
			continue
		}
		reads.Pairs[name] = pair
	}
	return reads, nil
}

const rejectFlags = sam.Unmapped | sam.MateUnmapped | sam.Secondary | sam.Supplementary

func keepRecord(p *probe.Probe, probes *probe.Set, r *sam.Record, uidSlack int) bool {
	if r.Flags&sam.Paired == 0 || r.Flags&rejectFlags != 0 {
		return false
	}
	read1 := r.Flags&sam.Read1 != 0
	if !read1 && r.Flags&sam.Read2 == 0 {
		return false
	}
	probeReverse := p.Strand == probe.Reverse
	if read1 != (isReverse(r) == probeReverse) {
		return false
	}
	start, stop := r.Pos+1, r.End()
	w := probes.Window(p)
	if p.PrimerForMate(isReverse(r)).AtStart {
		if start < w.Start && start >= w.Start-uidSlack {
			start = w.Start
		}
	} else if stop > w.Stop && stop <= w.Stop+uidSlack {
		stop = w.Stop
	}
	return probes.Contains(p, start, stop)
}

// leadingClip returns the number of soft-clipped bases at the start of the
// alignment, and trailingClip those at the end.
func leadingClip(r *sam.Record) int {
	n := 0
	for _, op := range r.Cigar {
		switch op.Type() {
		case sam.CigarSoftClipped:
			n += op.Len()
		case sam.CigarHardClipped:
		default:
			return n
		}
	}
	return n
}

func trailingClip(r *sam.Record) int {
	n := 0
	for i := len(r.Cigar) - 1; i >= 0; i-- {
		op := r.Cigar[i]
		switch op.Type() {
		case sam.CigarSoftClipped:
			n += op.Len()
		case sam.CigarHardClipped:
		default:
			return n
		}
	}
	return n
}

// strictMatch checks that each mate, after skipping its UID, starts within
// tolerance bases of the primer boundary.  For a forward mate the inferred
// start is the 1-based position of its first base, clips included, plus the
// UID length, compared to the primer start.  For a reverse mate it is the
// position of its last base, clips included, minus the UID length, compared
// to the primer stop.
func strictMatch(p *probe.Probe, pair *AlignedPair, tolerance int) bool {
	check := func(r *sam.Record, uidLen int) bool {
		primer := p.PrimerForMate(isReverse(r))
		if primer.AtStart {
			return abs(r.Pos+1-leadingClip(r)+uidLen-primer.Start) <= tolerance
		}
		return abs(r.End()+trailingClip(r)-uidLen-primer.Stop) <= tolerance
	}
	return check(pair.R1, len(pair.ExtensionUID)) && check(pair.R2, len(pair.LigationUID))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
