package probe

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/uiddedup/interval"
)

// Set holds the probes of a run, grouped by chromosome, with a containment
// index over their footprints.
type Set struct {
	// Probes in file order.
	Probes []*Probe
	// Chroms lists chromosome names in order of first appearance.
	Chroms  []string
	byChrom map[string][]*Probe
	index   map[string]*interval.ContainmentIndex
	padding int
}

// NewSet indexes probes.  The footprint of every probe, widened by padding
// bases on both sides, is the interval reads must fall within to be
// assigned to the probe.
//
// NewSet rejects input where one probe's footprint is nested strictly inside
// another's on the same chromosome, since the containment index cannot
// answer queries correctly for nested intervals.
func NewSet(probes []*Probe, padding int) (*Set, error) {
	s := &Set{
		Probes:  probes,
		byChrom: map[string][]*Probe{},
		index:   map[string]*interval.ContainmentIndex{},
		padding: padding,
	}
	for _, p := range probes {
		idx, ok := s.index[p.Chrom]
		if !ok {
			idx = &interval.ContainmentIndex{}
			s.index[p.Chrom] = idx
			s.Chroms = append(s.Chroms, p.Chrom)
		}
		w := s.Window(p)
		idx.Put(interval.PosType(w.Start), interval.PosType(w.Stop), p)
		s.byChrom[p.Chrom] = append(s.byChrom[p.Chrom], p)
	}
	for _, chrom := range s.Chroms {
		if err := s.index[chrom].Validate(); err != nil {
			nested := err.(*interval.NestedError)
			return nil, errors.E(errors.Invalid, fmt.Sprintf("probe %s is nested inside probe %s on %s",
				nested.Inner.(*Probe).ID, nested.Outer.(*Probe).ID, chrom))
		}
	}
	return s, nil
}

// Window returns the footprint of p widened by the set's padding.  It is the
// query window for reads of p.
func (s *Set) Window(p *Probe) Interval {
	w := p.Footprint()
	w.Start -= s.padding
	if w.Start < 1 {
		w.Start = 1
	}
	w.Stop += s.padding
	return w
}

// ForChrom returns the probes on chrom, in file order.
func (s *Set) ForChrom(chrom string) []*Probe {
	return s.byChrom[chrom]
}

// Containing returns the probes whose window contains [start, stop] on
// chrom.  start and stop are 1-based and inclusive.
func (s *Set) Containing(chrom string, start, stop int) []*Probe {
	idx, ok := s.index[chrom]
	if !ok {
		return nil
	}
	vals := idx.QueryContaining(interval.PosType(start), interval.PosType(stop))
	probes := make([]*Probe, len(vals))
	for i, v := range vals {
		probes[i] = v.(*Probe)
	}
	return probes
}

// Contains checks if p is among the probes whose window contains [start,
// stop] on p's chromosome.
func (s *Set) Contains(p *Probe, start, stop int) bool {
	for _, q := range s.Containing(p.Chrom, start, stop) {
		if q == p {
			return true
		}
	}
	return false
}
