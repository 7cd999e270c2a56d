// Copyright (c) 2017-2022 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sampleconfig

import (
	_ "embed"
)

// sampleP2pooldConf is a string containing the commented example config for
// p2poold.
//
//go:embed sample-p2poold.conf
var sampleP2pooldConf string

// P2poold returns a string containing the commented example config for
// p2poold.
func P2poold() string {
	return sampleP2pooldConf
}
