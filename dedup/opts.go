package dedup

import (
	"runtime"

	"github.com/grailbio/uiddedup/align"
)

// Opts configures a Pipeline.
type Opts struct {
	// Parallelism is the number of probes processed concurrently.  The
	// submitter collects the next probe only once a worker is free to take
	// it.
	Parallelism int

	// ExtensionUIDLength and LigationUIDLength are the UID lengths at the 5'
	// end of R1 and R2, used unless VariableUIDs is set.
	ExtensionUIDLength int
	LigationUIDLength  int
	// VariableUIDs locates the primer in each read by alignment; the bases
	// before it form the UID, up to MaxUIDLength of them.
	VariableUIDs bool
	MaxUIDLength int

	// Strict requires the inferred start of each mate, after its UID, to be
	// within StrictTolerance bases of the primer boundary.
	Strict          bool
	StrictTolerance int

	// WindowPadding widens every probe footprint when assigning reads.
	WindowPadding int

	// AlignmentBuffer is the number of read bases beyond the primer length
	// aligned against the primer.  AcceptanceBuffer is the maximum distance
	// between the aligned primer end and the primer length.
	AlignmentBuffer  int
	AcceptanceBuffer int
	Scoring          align.Scoring

	// Merge emits one consensus record per pair instead of two mates.
	Merge bool
	// KeepDuplicates writes duplicate pairs with the duplicate flag set.
	KeepDuplicates bool
	// KeepUnextended writes representative pairs whose extension failed,
	// tagged with the failure reason.
	KeepUnextended bool
}

// DefaultOpts is the default configuration.
var DefaultOpts = Opts{
	Parallelism:        runtime.NumCPU(),
	ExtensionUIDLength: 14,
	LigationUIDLength:  14,
	MaxUIDLength:       14,
	StrictTolerance:    0,
	AlignmentBuffer:    10,
	AcceptanceBuffer:   5,
	Scoring:            align.DefaultScoring,
	KeepUnextended:     true,
}

// uidSlack returns the largest number of UID bases a mate can carry.
func (o *Opts) uidSlack() int {
	n := o.ExtensionUIDLength
	if o.LigationUIDLength > n {
		n = o.LigationUIDLength
	}
	if o.VariableUIDs && o.MaxUIDLength > n {
		n = o.MaxUIDLength
	}
	return n
}
