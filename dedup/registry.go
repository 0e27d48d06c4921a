package dedup

import (
	"sort"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/unsafe"
)

const numRegistryShards = 256

func shardOf(key string) int {
	return int(seahash.Sum64(unsafe.StringToBytes(key)) % numRegistryShards)
}

type uidShard struct {
	mu   sync.Mutex
	uids map[string]struct{}
}

type readShard struct {
	mu sync.Mutex
	// probes maps a read name to the IDs of the probes that claimed it.
	probes map[string][]string
}

// Registry collects state shared by all probe tasks of a Pipeline: the set of
// distinct UID keys, the list of UID keys weighted by pair count, and the
// probes each read name was assigned to.  It is thread safe.
type Registry struct {
	uids  [numRegistryShards]uidShard
	reads [numRegistryShards]readShard

	mu       sync.Mutex
	weighted []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.uids {
		r.uids[i].uids = map[string]struct{}{}
		r.reads[i].probes = map[string][]string{}
	}
	return r
}

// AddUID adds a UID key to the distinct set.  It returns true if the key was
// not present.
func (r *Registry) AddUID(key string) bool {
	s := &r.uids[shardOf(key)]
	s.mu.Lock()
	_, ok := s.uids[key]
	if !ok {
		s.uids[key] = struct{}{}
	}
	s.mu.Unlock()
	return !ok
}

// AddWeighted appends one UID key per pair to the weighted list.
func (r *Registry) AddWeighted(keys ...string) {
	r.mu.Lock()
	r.weighted = append(r.weighted, keys...)
	r.mu.Unlock()
}

// ClaimRead records that probeID was assigned the pair named name.
func (r *Registry) ClaimRead(name, probeID string) {
	s := &r.reads[shardOf(name)]
	s.mu.Lock()
	s.probes[name] = append(s.probes[name], probeID)
	s.mu.Unlock()
}

// DistinctUIDs returns the number of distinct UID keys added.
func (r *Registry) DistinctUIDs() int {
	n := 0
	for i := range r.uids {
		s := &r.uids[i]
		s.mu.Lock()
		n += len(s.uids)
		s.mu.Unlock()
	}
	return n
}

// WeightedUIDs returns a sorted copy of the weighted UID list.
func (r *Registry) WeightedUIDs() []string {
	r.mu.Lock()
	keys := append([]string(nil), r.weighted...)
	r.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// MultiProbeReads returns the number of read names claimed by more than one
// probe.
func (r *Registry) MultiProbeReads() int {
	n := 0
	for i := range r.reads {
		s := &r.reads[i]
		s.mu.Lock()
		for _, ids := range s.probes {
			if len(ids) > 1 {
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// probesOf returns the IDs of the probes that claimed name, in claim order.
func (r *Registry) probesOf(name string) []string {
	s := &r.reads[shardOf(name)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.probes[name]...)
}
