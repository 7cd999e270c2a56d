// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package addrmgr implements a concurrency-safe address manager for the peers of
a p2pool node.

# Address Manager Overview

A p2pool node relays shares to a changing set of other nodes.  Each node must
keep track of the peers it knows about, remember how well past sessions with
them went, and share its knowledge with other nodes through address messages.
However, it is important to remember that remote peers cannot be trusted.  A
remote peer might send invalid addresses, claim made up last seen times, or
flood the node with addresses it controls.

With that in mind, this package provides an address manager which records
every known peer along with where it was learned from, when it was first and
last seen, and how many sessions with it ended well or badly.  The caller adds
addresses as it learns about them and notifies the address manager when
sessions start and end.  The caller also asks for the score of peers in order
to decide which ones to connect to and which ones to drop.

# Scoring

Scores reward reliable peers, peers seen recently, and peers learned through a
trusted path such as the local full node or the network DNS seeds.  Peers
without any history get a neutral reliability so they get a chance without
outranking proven peers.  Scores are never stored.  They are recomputed from a
record and the current time whenever they are needed.

# Protected Peers

The trusted peer registered by the operator, typically the local full node, is
protected.  It always scores at MaxScore, address messages never change it,
and it is never evicted.

# Persistence

The known peers along with whether the initial bootstrap completed are saved
to a JSON database in the data directory, named after the network, every ten
minutes and at shutdown.  Saves replace the database atomically.  A database
that can not be read is reported as ErrDatabaseCorrupt rather than silently
discarded.
*/
package addrmgr
