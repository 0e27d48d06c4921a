// Package probe defines targeted-capture probes and loads them from TSV
// probe tables.
//
// A probe has an extension primer and a ligation primer flanking a capture
// target.  On a forward-strand probe the extension primer lies to the left of
// the capture target and the ligation primer to the right; on a
// reverse-strand probe the sides are swapped.  All coordinates are 1-based and
// inclusive, and all sequences are given in reference (+ strand) orientation.
package probe

import (
	"fmt"
)

// Strand is the strand of the genome a probe targets.
type Strand uint8

const (
	// Forward is the + strand.
	Forward Strand = iota
	// Reverse is the - strand.
	Reverse
)

// String returns "+" or "-".
func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// ParseStrand parses "+", "-", "forward" or "reverse".
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+", "forward", "Forward", "F", "f":
		return Forward, nil
	case "-", "reverse", "Reverse", "R", "r":
		return Reverse, nil
	}
	return Forward, fmt.Errorf("invalid strand %q", s)
}

// Interval is a 1-based closed genomic interval.
type Interval struct {
	Start, Stop int
}

// Len returns the number of bases in the interval.
func (i Interval) Len() int {
	return i.Stop - i.Start + 1
}

// Contains checks if [start, stop] is inside the interval.
func (i Interval) Contains(start, stop int) bool {
	return i.Start <= start && stop <= i.Stop
}

func (i Interval) String() string {
	return fmt.Sprintf("%d-%d", i.Start, i.Stop)
}

// Probe is one capture probe.  Probes are immutable once loaded.
type Probe struct {
	ID           string
	Chrom        string
	Strand       Strand
	Extension    Interval
	Ligation     Interval
	Capture      Interval
	ExtensionSeq string
	LigationSeq  string
	CaptureSeq   string
}

// Primer is one of the two primers of a probe, viewed from the mate that
// carries it.
type Primer struct {
	Interval
	Seq string
	// Extension is true for the extension primer, false for the ligation
	// primer.
	Extension bool
	// AtStart is true if the primer precedes the capture target in reference
	// coordinates.  Such a primer is at the start of the stored sequence of
	// the mate that carries it; otherwise it is at the end.
	AtStart bool
}

// LeftPrimer returns the primer that precedes the capture target.  It is
// carried by the forward-aligned mate.
func (p *Probe) LeftPrimer() Primer {
	if p.Strand == Forward {
		return Primer{Interval: p.Extension, Seq: p.ExtensionSeq, Extension: true, AtStart: true}
	}
	return Primer{Interval: p.Ligation, Seq: p.LigationSeq, Extension: false, AtStart: true}
}

// RightPrimer returns the primer that follows the capture target.  It is
// carried by the reverse-aligned mate.
func (p *Probe) RightPrimer() Primer {
	if p.Strand == Forward {
		return Primer{Interval: p.Ligation, Seq: p.LigationSeq, Extension: false, AtStart: false}
	}
	return Primer{Interval: p.Extension, Seq: p.ExtensionSeq, Extension: true, AtStart: false}
}

// PrimerForMate returns the primer carried by a mate aligned in the given
// orientation.
func (p *Probe) PrimerForMate(reverse bool) Primer {
	if reverse {
		return p.RightPrimer()
	}
	return p.LeftPrimer()
}

// Footprint returns the smallest interval covering both primers and the
// capture target.
func (p *Probe) Footprint() Interval {
	f := p.Capture
	for _, iv := range []Interval{p.Extension, p.Ligation} {
		if iv.Start < f.Start {
			f.Start = iv.Start
		}
		if iv.Stop > f.Stop {
			f.Stop = iv.Stop
		}
	}
	return f
}

// String returns a short description of the probe, for logging.
func (p *Probe) String() string {
	return fmt.Sprintf("%s(%s:%v%v)", p.ID, p.Chrom, p.Footprint(), p.Strand)
}
