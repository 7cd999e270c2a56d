// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"testing"
	"time"
)

// TestPeerStoreUpsert ensures upserts create records with the provided
// provenance and merge sightings of known records without touching their
// provenance.
func TestPeerStoreUpsert(t *testing.T) {
	store := NewPeerStore()
	na := mustNetAddress(t, "1.2.3.4", 9999)
	t0 := time.Unix(1700000000, 500)

	rec, created := store.Upsert(na, SourceManual, t0)
	if !created {
		t.Fatal("first upsert did not create a record")
	}
	if rec.Source != SourceManual || rec.Protected ||
		rec.SuccessfulBroadcasts != 0 || rec.FailedBroadcasts != 0 {
		t.Fatalf("unexpected new record: %v", &rec)
	}
	if !rec.FirstSeen.Equal(time.Unix(1700000000, 0)) ||
		!rec.LastSeen.Equal(rec.FirstSeen) {
		t.Fatalf("unexpected seen times: %v, %v", rec.FirstSeen, rec.LastSeen)
	}

	// A later sighting from gossip only bumps the last seen time.
	t1 := t0.Add(time.Hour)
	rec, created = store.Upsert(na, SourceDiscovery, t1)
	if created {
		t.Fatal("second upsert created a record")
	}
	if rec.Source != SourceManual {
		t.Fatalf("source changed to %v", rec.Source)
	}
	if !rec.FirstSeen.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("first seen changed to %v", rec.FirstSeen)
	}
	if !rec.LastSeen.Equal(time.Unix(t1.Unix(), 0)) {
		t.Fatalf("last seen not bumped: %v", rec.LastSeen)
	}

	// An earlier sighting does not move the last seen time backwards.
	rec, _ = store.Upsert(na, SourceDiscovery, t0)
	if !rec.LastSeen.Equal(time.Unix(t1.Unix(), 0)) {
		t.Fatalf("last seen moved backwards: %v", rec.LastSeen)
	}

	if store.Size() != 1 {
		t.Fatalf("unexpected size %d", store.Size())
	}
}

// TestPeerStoreUpsertTestSource ensures records inserted with the test source
// take on the source of a later upsert.
func TestPeerStoreUpsertTestSource(t *testing.T) {
	store := NewPeerStore()
	na := mustNetAddress(t, "1.2.3.4", 9999)
	now := time.Unix(1700000000, 0)

	store.Upsert(na, SourceTest, now)
	rec, _ := store.Upsert(na, SourceBootstrap, now)
	if rec.Source != SourceBootstrap {
		t.Fatalf("unexpected source %v", rec.Source)
	}
}

// TestPeerStoreCopies ensures records handed out by the store do not alias
// the stored records.
func TestPeerStoreCopies(t *testing.T) {
	store := NewPeerStore()
	na := mustNetAddress(t, "1.2.3.4", 9999)
	store.Upsert(na, SourceDiscovery, time.Unix(1700000000, 0))

	rec, ok := store.Get(na)
	if !ok {
		t.Fatal("record not found")
	}
	rec.Protected = true
	rec.FailedBroadcasts = 10

	snap := store.Snapshot()
	snap[0].SuccessfulBroadcasts = 10

	got, _ := store.Get(na)
	if got.Protected || got.FailedBroadcasts != 0 ||
		got.SuccessfulBroadcasts != 0 {
		t.Fatalf("stored record was modified through a copy: %v", &got)
	}
}

// TestPeerStoreRemoveForEach exercises removal and iteration.
func TestPeerStoreRemoveForEach(t *testing.T) {
	store := NewPeerStore()
	now := time.Unix(1700000000, 0)
	hosts := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}
	for _, host := range hosts {
		store.Upsert(mustNetAddress(t, host, 9999), SourceDiscovery, now)
	}

	seen := make(map[NetAddress]bool)
	store.ForEach(func(rec PeerRecord) bool {
		seen[rec.Addr] = true
		return true
	})
	if len(seen) != len(hosts) {
		t.Fatalf("iterated %d records, want %d", len(seen), len(hosts))
	}

	var visited int
	store.ForEach(func(rec PeerRecord) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("iteration did not stop early, visited %d", visited)
	}

	if !store.Remove(mustNetAddress(t, "2.2.2.2", 9999)) {
		t.Fatal("remove of known record failed")
	}
	if store.Remove(mustNetAddress(t, "2.2.2.2", 9999)) {
		t.Fatal("remove of unknown record succeeded")
	}
	if store.Size() != 2 {
		t.Fatalf("unexpected size %d", store.Size())
	}
}

// TestPeerStoreEvictionCandidate ensures the lowest scoring record that is
// neither protected nor skipped is chosen for eviction.
func TestPeerStoreEvictionCandidate(t *testing.T) {
	store := NewPeerStore()
	now := time.Unix(1700000000, 0)

	worst := mustNetAddress(t, "1.1.1.1", 9999)
	connected := mustNetAddress(t, "2.2.2.2", 9999)
	protected := mustNetAddress(t, "3.3.3.3", 9999)
	good := mustNetAddress(t, "4.4.4.4", 9999)

	store.Put(PeerRecord{Addr: worst, LastSeen: now, Source: SourceDiscovery,
		FailedBroadcasts: 5})
	store.Put(PeerRecord{Addr: connected, LastSeen: now,
		Source: SourceDiscovery, FailedBroadcasts: 50})
	store.Put(PeerRecord{Addr: protected, LastSeen: now.Add(-time.Hour * 100),
		Source: SourceDiscovery, FailedBroadcasts: 50, Protected: true})
	store.Put(PeerRecord{Addr: good, LastSeen: now, Source: SourceDiscovery,
		SuccessfulBroadcasts: 5})

	skip := func(na NetAddress) bool { return na == connected }
	rec, score := store.evictionCandidate(&DefaultScoringParams, now, skip)
	if rec == nil || rec.Addr != worst {
		t.Fatalf("unexpected eviction candidate %v", rec)
	}
	if want := Score(rec, now); score != want {
		t.Fatalf("unexpected candidate score %v, want %v", score, want)
	}

	// Nothing is eligible when every record is protected or skipped.
	store.Remove(worst)
	store.Remove(good)
	if rec, _ := store.evictionCandidate(&DefaultScoringParams, now, skip); rec != nil {
		t.Fatalf("unexpected eviction candidate %v", rec)
	}
}
