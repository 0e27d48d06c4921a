package dedup

import (
	"github.com/grailbio/base/simd"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/biosimd"
)

// AlignedPair is a read pair assigned to one probe.  Both mates are always
// present.
type AlignedPair struct {
	R1, R2 *sam.Record

	// UIDs in sequencing orientation.  The extension UID comes from R1 and the
	// ligation UID from R2.
	ExtensionUID string
	LigationUID  string

	// Representative is set on the one pair chosen per UID group.
	Representative bool
	// GroupID and GroupSize describe the UID group of the pair.
	GroupID   string
	GroupSize int
}

// Name returns the read name shared by both mates.
func (p *AlignedPair) Name() string {
	return p.R1.Name
}

// Key returns the UID group key, the extension UID followed by the ligation
// UID.
func (p *AlignedPair) Key() string {
	return p.ExtensionUID + p.LigationUID
}

// QualitySum returns the sum of the Phred scores of both mates.
func (p *AlignedPair) QualitySum() int {
	return simd.Accumulate8Greater(p.R1.Qual, 0) + simd.Accumulate8Greater(p.R2.Qual, 0)
}

// mateSeq returns the bases of r in reference orientation, as stored.
func mateSeq(r *sam.Record) []byte {
	return r.Seq.Expand()
}

// readOrientation returns the bases and Phred scores of r in the orientation
// they were sequenced in.
func readOrientation(r *sam.Record) (seq, qual []byte) {
	seq = r.Seq.Expand()
	qual = append([]byte(nil), r.Qual...)
	if r.Flags&sam.Reverse != 0 {
		biosimd.ReverseComp8Inplace(seq)
		simd.Reverse8Inplace(qual)
	}
	return seq, qual
}

func isReverse(r *sam.Record) bool {
	return r.Flags&sam.Reverse != 0
}
