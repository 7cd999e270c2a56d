// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"time"
)

// PeerStore is the in-memory set of known peers keyed by network address.
//
// PeerStore is NOT safe for concurrent access.  The address manager serializes
// all access to the store it owns.
type PeerStore struct {
	records map[NetAddress]*PeerRecord
}

// NewPeerStore returns an empty peer store.
func NewPeerStore() *PeerStore {
	return &PeerStore{records: make(map[NetAddress]*PeerRecord)}
}

// Get returns a copy of the record for the provided address.
func (s *PeerStore) Get(na NetAddress) (PeerRecord, bool) {
	rec, ok := s.records[na]
	if !ok {
		return PeerRecord{}, false
	}
	return *rec, true
}

// lookup returns the stored record for the provided address so that callers
// within the package can mutate it in place.
func (s *PeerStore) lookup(na NetAddress) *PeerRecord {
	return s.records[na]
}

// Put stores the provided record, replacing any existing record with the same
// address.
func (s *PeerStore) Put(rec PeerRecord) {
	r := rec
	s.records[rec.Addr] = &r
}

// Upsert merges a sighting of the provided address into the store.  A new
// record is created with the provided source when the address is unknown.
// Otherwise the existing record has its last seen time bumped while its first
// seen time and source are left untouched, except that records with the test
// source take on the provided source.  The protected flag is never modified.
//
// The returned record is a copy along with whether or not it was created.
func (s *PeerStore) Upsert(na NetAddress, source Source, now time.Time) (PeerRecord, bool) {
	if rec, ok := s.records[na]; ok {
		if t := roundTime(now); t.After(rec.LastSeen) {
			rec.LastSeen = t
		}
		if rec.Source == SourceTest && source != SourceTest {
			rec.Source = source
		}
		return *rec, false
	}

	rec := newPeerRecord(na, source, now)
	s.records[na] = rec
	return *rec, true
}

// Remove deletes the record for the provided address and reports whether it
// existed.
func (s *PeerStore) Remove(na NetAddress) bool {
	if _, ok := s.records[na]; !ok {
		return false
	}
	delete(s.records, na)
	return true
}

// Size returns the number of known peers.
func (s *PeerStore) Size() int {
	return len(s.records)
}

// ForEach invokes the provided function with a copy of every record.
// Iteration stops early when the function returns false.  The order is
// unspecified.
func (s *PeerStore) ForEach(fn func(rec PeerRecord) bool) {
	for _, rec := range s.records {
		if !fn(*rec) {
			return
		}
	}
}

// Snapshot returns a point-in-time copy of every record.
func (s *PeerStore) Snapshot() []PeerRecord {
	recs := make([]PeerRecord, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, *rec)
	}
	return recs
}

// evictionCandidate returns the lowest scoring record that may be evicted to
// make room for a new peer along with its score.  Protected records and those
// for which skip returns true are never candidates.
func (s *PeerStore) evictionCandidate(params *ScoringParams, now time.Time,
	skip func(NetAddress) bool) (*PeerRecord, float64) {

	var worst *PeerRecord
	var worstScore float64
	for na, rec := range s.records {
		if rec.Protected || (skip != nil && skip(na)) {
			continue
		}
		score := params.Score(rec, now)
		if worst == nil || score < worstScore {
			worst, worstScore = rec, score
		}
	}
	return worst, worstScore
}
