// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// MaxAddrPerMessage is the maximum number of entries processed from a single
// address message.
const MaxAddrPerMessage = 1000

// AddrEntry is a single peer advertised in an address message.
type AddrEntry struct {
	Host string
	Port int

	// Timestamp is when the advertising peer claims to have last seen the
	// peer.  It is not trusted and is ignored in favor of the local arrival
	// time.
	Timestamp time.Time
}

// HandleAddressMessage merges the entries of an address message received from
// the provided peer into the known peers and returns the number of previously
// unknown peers.
//
// Unknown peers are added as discovered through gossip with their first and
// last seen times set to the local arrival time.  Known peers only have their
// last seen time updated, so their source and protection never change.
// Entries that refer to the local node or to the sender are ignored.
//
// Malformed entries are skipped without affecting the remaining entries.  The
// returned error combines one error per skipped entry and may be split with
// multierr.Errors.
//
// This function is safe for concurrent access.
func (a *AddrManager) HandleAddressMessage(entries []AddrEntry, from NetAddress) (int, error) {
	var errs error
	if len(entries) > MaxAddrPerMessage {
		str := fmt.Sprintf("address message from %v has %d entries which "+
			"exceeds the max of %d", from, len(entries), MaxAddrPerMessage)
		errs = multierr.Append(errs, makeError(ErrTooManyAddresses, str))
		entries = entries[:MaxAddrPerMessage]
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	var added int
	for i := range entries {
		entry := &entries[i]
		na, err := NewNetAddress(entry.Host, entry.Port)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if na == from || a.isLocal(na) {
			continue
		}

		created, err := a.addAddress(na, SourceDiscovery)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if created {
			added++
		}
	}

	if added > 0 {
		log.Debugf("Added %d new addresses from %v (%d total)", added, from,
			a.store.Size())
	}
	return added, errs
}
