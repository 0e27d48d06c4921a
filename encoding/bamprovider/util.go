package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// RefByName returns the reference named name in h, or nil.
func RefByName(h *sam.Header, name string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == name {
			return ref
		}
	}
	return nil
}
