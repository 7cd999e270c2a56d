// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// serialisationVersion is the current version of the on-disk format.
const serialisationVersion = 1

// serializedPeerRecord is used to represent the serializable state of a peer
// record.  The score is not stored since it is always derived.
type serializedPeerRecord struct {
	Addr                 string
	FirstSeen            int64
	LastSeen             int64
	Source               Source
	Protected            bool
	SuccessfulBroadcasts uint64
	FailedBroadcasts     uint64
}

// serializedPeerDB is used to represent the serializable state of a peer
// store along with the bootstrap completion flag.
type serializedPeerDB struct {
	Version      int
	Network      string
	Bootstrapped bool
	Peers        []*serializedPeerRecord
}

// PeersFilePath returns the path of the peer database for the provided
// network within the data directory.
func PeersFilePath(dataDir, network string) string {
	return filepath.Join(dataDir, fmt.Sprintf("peers-%s.json", network))
}

// SavePeers writes the provided records and bootstrap flag to the file at the
// provided path.  The data is first written to a temporary file which is then
// moved into place so a reader never observes a partially written database.
//
// Errors are of kind ErrDatabaseWrite.
func SavePeers(filePath, network string, recs []PeerRecord, bootstrapped bool) error {
	spdb := serializedPeerDB{
		Version:      serialisationVersion,
		Network:      network,
		Bootstrapped: bootstrapped,
		Peers:        make([]*serializedPeerRecord, 0, len(recs)),
	}
	for i := range recs {
		rec := &recs[i]
		spdb.Peers = append(spdb.Peers, &serializedPeerRecord{
			Addr:                 rec.Addr.Key(),
			FirstSeen:            rec.FirstSeen.Unix(),
			LastSeen:             rec.LastSeen.Unix(),
			Source:               rec.Source,
			Protected:            rec.Protected,
			SuccessfulBroadcasts: rec.SuccessfulBroadcasts,
			FailedBroadcasts:     rec.FailedBroadcasts,
		})
	}

	writeErr := func(op string, err error) error {
		str := fmt.Sprintf("failed to %s peer database %s: %v", op,
			filePath, err)
		return Error{Err: errors.Join(ErrDatabaseWrite, err), Description: str}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return writeErr("create directory for", err)
	}

	// Write temporary peers file and then move it into place.
	tmpfile := filePath + ".new"
	w, err := os.Create(tmpfile)
	if err != nil {
		return writeErr("create", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&spdb); err != nil {
		w.Close()
		os.Remove(tmpfile)
		return writeErr("encode", err)
	}
	if err := w.Sync(); err != nil {
		w.Close()
		os.Remove(tmpfile)
		return writeErr("sync", err)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmpfile)
		return writeErr("close", err)
	}
	if err := os.Rename(tmpfile, filePath); err != nil {
		os.Remove(tmpfile)
		return writeErr("replace", err)
	}
	return nil
}

// LoadPeers reads the peer database at the provided path.  A missing file is
// not an error and results in an empty store that has not been bootstrapped.
// Any other problem with the file results in an error of kind
// ErrDatabaseCorrupt so the caller can decide whether to continue without the
// stored peers.
func LoadPeers(filePath, network string) (*PeerStore, bool, error) {
	r, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return NewPeerStore(), false, nil
	}
	if err != nil {
		str := fmt.Sprintf("failed to open peer database %s: %v", filePath, err)
		return nil, false, makeError(ErrDatabaseCorrupt, str)
	}
	defer r.Close()

	corrupt := func(format string, args ...interface{}) error {
		str := fmt.Sprintf("peer database %s is corrupt: %s", filePath,
			fmt.Sprintf(format, args...))
		return makeError(ErrDatabaseCorrupt, str)
	}

	var spdb serializedPeerDB
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spdb); err != nil {
		return nil, false, corrupt("%v", err)
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, false, corrupt("trailing data after database")
	}
	if spdb.Version != serialisationVersion {
		return nil, false, corrupt("unknown version %d", spdb.Version)
	}
	if spdb.Network != network {
		return nil, false, corrupt("database is for network %q, not %q",
			spdb.Network, network)
	}

	store := NewPeerStore()
	for i, v := range spdb.Peers {
		if v == nil {
			return nil, false, corrupt("empty peer entry %d", i)
		}
		na, err := ParseNetAddress(v.Addr)
		if err != nil {
			return nil, false, corrupt("peer entry %d: %v", i, err)
		}
		if !v.Source.IsValid() {
			return nil, false, corrupt("peer %s has unknown source %q",
				v.Addr, v.Source)
		}
		if _, ok := store.records[na]; ok {
			return nil, false, corrupt("duplicate peer %s", v.Addr)
		}
		store.records[na] = &PeerRecord{
			Addr:                 na,
			FirstSeen:            time.Unix(v.FirstSeen, 0),
			LastSeen:             time.Unix(v.LastSeen, 0),
			Source:               v.Source,
			Protected:            v.Protected,
			SuccessfulBroadcasts: v.SuccessfulBroadcasts,
			FailedBroadcasts:     v.FailedBroadcasts,
		}
	}

	return store, spdb.Bootstrapped, nil
}

// quarantineCorrupt moves a corrupt database out of the way so a fresh one can
// be written in its place.  The corrupt file is kept for inspection.
func quarantineCorrupt(filePath string) error {
	dst := filePath + ".corrupt"
	if err := os.Rename(filePath, dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
