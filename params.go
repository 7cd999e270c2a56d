// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

// params is used to group parameters for the various Dash networks such as the
// main network and test networks.
type params struct {
	// Name is the name of the network.  It also names the peer database.
	Name string

	// DefaultPort is the default peer-to-peer port of dashd nodes on the
	// network.
	DefaultPort uint16

	// DNSSeeds lists the DNS seeds used to bootstrap the peer database.
	DNSSeeds []string
}

// mainNetParams contains parameters specific to the main network.
var mainNetParams = params{
	Name:        "mainnet",
	DefaultPort: 9999,
	DNSSeeds: []string{
		"dnsseed.dash.org",
		"dnsseed.dashdot.io",
	},
}

// testNet3Params contains parameters specific to the test network (version 3).
var testNet3Params = params{
	Name:        "testnet3",
	DefaultPort: 19999,
	DNSSeeds: []string{
		"testnet-seed.dashdot.io",
	},
}

// regNetParams contains parameters specific to the regression test network.
// There are no DNS seeds since the network is local.
var regNetParams = params{
	Name:        "regtest",
	DefaultPort: 19899,
}
