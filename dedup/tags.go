package dedup

import (
	"fmt"
	"strconv"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/hts/sam"
)

var (
	probeTag        = sam.Tag{'X', 'P'}
	extensionUIDTag = sam.Tag{'X', 'E'}
	ligationUIDTag  = sam.Tag{'X', 'L'}
	mdTag           = sam.Tag{'M', 'D'}
	nmTag           = sam.Tag{'N', 'M'}
	diTag           = sam.Tag{'D', 'I'}
	dsTag           = sam.Tag{'D', 'S'}
	extensionErrTag = sam.Tag{'X', 'X'}
)

// groupID returns the DI tag value of the UID group key of probeID.
func groupID(probeID, key string) string {
	return strconv.FormatUint(farm.Fingerprint64([]byte(probeID+"\t"+key)), 10)
}

// setAux sets tag to val on r, replacing any existing values of tag.
func setAux(r *sam.Record, tag sam.Tag, val interface{}) {
	aux, err := sam.NewAux(tag, val)
	if err != nil {
		panic(fmt.Sprintf("error creating %s %v tag: %v", tag, val, err))
	}
	fields := make(sam.AuxFields, 0, len(r.AuxFields)+1)
	for _, a := range r.AuxFields {
		if a.Tag() != tag {
			fields = append(fields, a)
		}
	}
	r.AuxFields = append(fields, aux)
}

// tagPair sets the probe, UID and UID group tags on both mates.
func tagPair(probeID string, pair *AlignedPair, recs ...*sam.Record) {
	for _, r := range recs {
		setAux(r, probeTag, probeID)
		setAux(r, extensionUIDTag, pair.ExtensionUID)
		setAux(r, ligationUIDTag, pair.LigationUID)
		setAux(r, diTag, pair.GroupID)
		setAux(r, dsTag, pair.GroupSize)
	}
}
