package dedup

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/uiddedup/probe"
)

// UIDGroup is the set of pairs of one probe that share a UID key.
type UIDGroup struct {
	Key          string
	ExtensionUID string
	LigationUID  string
	ID           string
	Pairs        []*AlignedPair
	// Representative is the pair with the highest summed quality, ties broken
	// by the smallest read name.
	Representative *AlignedPair
}

// UIDReduction is the result of deduplicating one probe.
type UIDReduction struct {
	Probe  *probe.Probe
	Groups []*UIDGroup
	// Representatives holds one pair per group, in group key order.
	Representatives []*AlignedPair
	// Duplicates holds all other pairs with a UID.
	Duplicates []*AlignedPair
	// Excluded holds pairs whose UIDs could not be parsed, or which failed the
	// strict position check.
	Excluded []*AlignedPair
	Stats    ProbeStats
}

// ReduceUIDs groups the pairs of reads by UID key and picks one representative
// per group.  The result does not depend on map iteration order.
func ReduceUIDs(reads *ProbeReads, opts *Opts) *UIDReduction {
	p := reads.Probe
	red := &UIDReduction{Probe: p}
	red.Stats.ProbeID = p.ID
	red.Stats.Records = reads.Records
	red.Stats.Filtered = reads.Filtered
	red.Stats.Incomplete = reads.Incomplete
	red.Stats.Pairs = len(reads.Pairs)

	parser := uidParser{opts}
	byKey := map[string]*UIDGroup{}
	for _, name := range reads.Names() {
		pair := reads.Pairs[name]
		if err := parser.parse(p, pair); err != nil {
			log.Debug.Printf("%s: %s: %v", p.ID, name, err)
			red.Stats.UIDExcluded++
			red.Excluded = append(red.Excluded, pair)
			continue
		}
		if opts.Strict && !strictMatch(p, pair, opts.StrictTolerance) {
			red.Stats.StrictRejected++
			red.Excluded = append(red.Excluded, pair)
			continue
		}
		key := pair.Key()
		g := byKey[key]
		if g == nil {
			g = &UIDGroup{
				Key:          key,
				ExtensionUID: pair.ExtensionUID,
				LigationUID:  pair.LigationUID,
				ID:           groupID(p.ID, key),
			}
			byKey[key] = g
			red.Groups = append(red.Groups, g)
		}
		g.Pairs = append(g.Pairs, pair)
	}
	sort.Slice(red.Groups, func(i, j int) bool { return red.Groups[i].Key < red.Groups[j].Key })

	for _, g := range red.Groups {
		g.Representative = selectRepresentative(g.Pairs)
		for _, pair := range g.Pairs {
			pair.GroupID = g.ID
			pair.GroupSize = len(g.Pairs)
			pair.Representative = pair == g.Representative
			if pair.Representative {
				red.Representatives = append(red.Representatives, pair)
			} else {
				red.Duplicates = append(red.Duplicates, pair)
			}
		}
	}
	groupStats(&red.Stats, red.Groups)
	return red
}

// selectRepresentative returns the pair with the highest summed quality.  Ties
// go to the pair with the lexicographically smallest read name.
func selectRepresentative(pairs []*AlignedPair) *AlignedPair {
	var (
		best      *AlignedPair
		bestScore int
	)
	for _, pair := range pairs {
		score := pair.QualitySum()
		if best == nil || score > bestScore || (score == bestScore && pair.Name() < best.Name()) {
			best, bestScore = pair, score
		}
	}
	return best
}
