package dedup

import (
	"math"
)

// Composition counts A, C, G, T and other bases.
type Composition [5]int64

const compositionBases = "ACGTN"

// Add counts the bases of seq.
func (c *Composition) Add(seq string) {
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A':
			c[0]++
		case 'C':
			c[1]++
		case 'G':
			c[2]++
		case 'T':
			c[3]++
		default:
			c[4]++
		}
	}
}

// Merge adds the counts of o to c.
func (c *Composition) Merge(o Composition) {
	for i := range c {
		c[i] += o[i]
	}
}

// Total returns the number of bases counted.
func (c Composition) Total() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Fraction returns the fraction of base b, one of "ACGTN", among all counted
// bases.  It is NaN if nothing was counted.
func (c Composition) Fraction(b byte) float64 {
	for i := 0; i < len(compositionBases); i++ {
		if compositionBases[i] == b {
			return float64(c[i]) / float64(c.Total())
		}
	}
	return math.NaN()
}

// ProbeStats summarizes the processing of one probe.  It is created once the
// probe's UIDs are reduced and completed once its pairs are written.
type ProbeStats struct {
	ProbeID string

	// Collection.
	Records    int
	Filtered   int
	Incomplete int

	// Deduplication.  Pairs = UIDExcluded + StrictRejected + UIDs + Duplicates.
	Pairs           int
	UIDExcluded     int
	StrictRejected  int
	UIDs            int
	Duplicates      int
	MinPairsPerUID  int
	MaxPairsPerUID  int
	MeanPairsPerUID float64
	// Composition counts UID bases once per UID group; WeightedComposition
	// once per pair.
	Composition         Composition
	WeightedComposition Composition

	// Extension and output.
	Extended   int
	Unextended int
	Merged     int

	// Failed is set when processing of the probe stopped with Error.
	Failed bool
	Error  string
}

// blankStats returns the stats recorded for a probe whose processing failed.
func blankStats(probeID string, err error) ProbeStats {
	return ProbeStats{
		ProbeID:         probeID,
		MeanPairsPerUID: math.NaN(),
		Failed:          true,
		Error:           err.Error(),
	}
}

// groupStats fills the UID distribution fields of s from groups.
func groupStats(s *ProbeStats, groups []*UIDGroup) {
	s.UIDs = len(groups)
	s.MeanPairsPerUID = math.NaN()
	if len(groups) == 0 {
		return
	}
	total := 0
	s.MinPairsPerUID = math.MaxInt32
	for _, g := range groups {
		n := len(g.Pairs)
		total += n
		if n < s.MinPairsPerUID {
			s.MinPairsPerUID = n
		}
		if n > s.MaxPairsPerUID {
			s.MaxPairsPerUID = n
		}
		s.Composition.Add(g.Key)
		for i := 0; i < n; i++ {
			s.WeightedComposition.Add(g.Key)
		}
	}
	s.Duplicates = total - len(groups)
	s.MeanPairsPerUID = float64(total) / float64(len(groups))
}
