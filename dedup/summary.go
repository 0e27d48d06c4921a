package dedup

import (
	"time"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/encoding/bamprovider"
	"github.com/grailbio/uiddedup/probe"
)

// Summary describes a whole Pipeline run.
type Summary struct {
	Probes       int
	FailedProbes int

	// Census of the primary records of the input.  A mapped record is on
	// target if it lies within the window of at least one probe.
	TotalReads     int64
	MappedReads    int64
	UnmappedReads  int64
	OnTargetReads  int64
	OffTargetReads int64

	// Totals over the probes.
	Pairs          int
	UIDExcluded    int
	StrictRejected int
	UIDs           int
	Duplicates     int
	Extended       int
	Unextended     int
	Merged         int

	// DistinctUIDs counts UID keys across all probes.
	DistinctUIDs int
	// MultiProbeReads counts read pairs assigned to more than one probe.
	MultiProbeReads int
	// WeightedComposition counts the bases of every UID key once per pair.
	WeightedComposition Composition

	Duration time.Duration

	// Stats holds one entry per probe, in the order of probes.Chroms and the
	// probes of each chromosome.
	Stats []ProbeStats
}

func (s *Summary) add(ps *ProbeStats) {
	s.Probes++
	if ps.Failed {
		s.FailedProbes++
	}
	s.Pairs += ps.Pairs
	s.UIDExcluded += ps.UIDExcluded
	s.StrictRejected += ps.StrictRejected
	s.UIDs += ps.UIDs
	s.Duplicates += ps.Duplicates
	s.Extended += ps.Extended
	s.Unextended += ps.Unextended
	s.Merged += ps.Merged
}

type census struct {
	total, mapped, unmapped, onTarget, offTarget int64
}

// takeCensus counts the primary records of provider.
func takeCensus(provider bamprovider.Provider, probes *probe.Set) (census, error) {
	var c census
	iter := provider.NewIterator()
	for iter.Scan() {
		r := iter.Record()
		if r.Flags&(sam.Secondary|sam.Supplementary) != 0 {
			continue
		}
		c.total++
		if r.Flags&sam.Unmapped != 0 || r.Ref == nil {
			c.unmapped++
			continue
		}
		c.mapped++
		if len(probes.Containing(r.Ref.Name(), r.Pos+1, r.End())) > 0 {
			c.onTarget++
		} else {
			c.offTarget++
		}
	}
	return c, iter.Close()
}
