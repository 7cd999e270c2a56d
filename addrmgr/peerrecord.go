// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"fmt"
	"time"
)

// Source describes how the address manager first learned about a peer.
type Source string

// These constants define the recognized peer sources.
const (
	// SourceBootstrap is a peer learned through a pre-trusted bootstrap path,
	// such as the local full node or the network DNS seeds.
	SourceBootstrap Source = "bootstrap-node"

	// SourceDiscovery is a peer learned from an address message gossiped by
	// another peer.
	SourceDiscovery Source = "p2p-discovery"

	// SourceManual is a peer supplied by the operator.
	SourceManual Source = "manual"

	// SourceTest is a peer inserted by tests.  Records with this source may
	// have their source replaced by a later upsert.
	SourceTest Source = "test"
)

// IsValid returns whether or not the source is one of the recognized sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceBootstrap, SourceDiscovery, SourceManual, SourceTest:
		return true
	}
	return false
}

// trusted returns whether the source vetted the peer through a path other than
// third-party gossip.
func (s Source) trusted() bool {
	return s == SourceBootstrap || s == SourceManual
}

// PeerRecord tracks information about a known peer that is used to determine
// how desirable a connection to it is.
//
// Records handed out by the address manager are copies, so modifying them has
// no effect on the manager's state.
type PeerRecord struct {
	// Addr is the identity of the record and never changes.
	Addr NetAddress

	// FirstSeen is when the peer was first learned about.
	FirstSeen time.Time

	// LastSeen is the most recent successful contact with the peer or the
	// most recent time another peer mentioned it.
	LastSeen time.Time

	// Source is how the peer was first learned about.
	Source Source

	// Protected marks the operator-registered trusted peer.  Protected peers
	// always score at MaxScore and are never evicted or disconnected.
	Protected bool

	// SuccessfulBroadcasts and FailedBroadcasts count the outcomes of past
	// sessions with the peer.
	SuccessfulBroadcasts uint64
	FailedBroadcasts     uint64
}

// String returns a human-readable summary of the record.
func (r *PeerRecord) String() string {
	return fmt.Sprintf("%s (source %s, protected %v, ok %d, failed %d)",
		r.Addr, r.Source, r.Protected, r.SuccessfulBroadcasts,
		r.FailedBroadcasts)
}

// newPeerRecord returns a record for a peer learned at the provided time.
func newPeerRecord(na NetAddress, source Source, now time.Time) *PeerRecord {
	now = roundTime(now)
	return &PeerRecord{
		Addr:      na,
		FirstSeen: now,
		LastSeen:  now,
		Source:    source,
	}
}

// roundTime truncates the provided time to whole seconds since that is the
// resolution records are persisted with.
func roundTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0)
}
