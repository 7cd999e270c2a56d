// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2017-2020 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"net"

	"github.com/dashpool/p2poold/addrmgr"
)

// The following types are delivered to the connection handler.  The first
// group reports the outcome of network activity that happens outside of the
// handler while the second group carries requests made through the exported
// methods of the connection manager.

// connectionEstablished reports a successful connection attempt.
type connectionEstablished struct {
	id   uint64
	addr addrmgr.NetAddress
	conn net.Conn
}

// connectionFailed reports a failed connection attempt.
type connectionFailed struct {
	id   uint64
	addr addrmgr.NetAddress
	err  error
}

// connectionClosed reports the end of a session.  A nil error means the
// session ended gracefully.
type connectionClosed struct {
	id   uint64
	addr addrmgr.NetAddress
	err  error
}

// connectRequest asks for a connection to a specific peer.
type connectRequest struct {
	addr addrmgr.NetAddress
	done chan error
}

// disconnectRequest asks for the connection to a peer to be torn down.
type disconnectRequest struct {
	addr addrmgr.NetAddress
	done chan error
}

// maintenanceRequest asks for a maintenance cycle to be run.  The done channel
// is closed once the cycle completes when it is not nil.
type maintenanceRequest struct {
	done chan struct{}
}

// connectionsQuery asks for a snapshot of the live connections.
type connectionsQuery struct {
	reply chan []ConnectionRecord
}
