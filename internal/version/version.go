// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version provides a single location to house the version information
// for p2poold.
package version

import "strings"

// Version is the application version per the semantic versioning 2.0.0 spec
// (https://semver.org/).
//
// It is defined as a variable so it can be overridden during the build process
// with:
// '-ldflags "-X github.com/dashpool/p2poold/internal/version.Version=fullsemver"'
// if needed.  Release builds set build metadata, for example
// 0.1.0+release.local.
var Version = "0.1.0-pre"

// commit is the VCS revision the binary was built from when known.
var commit = vcsCommitID(readBuildInfo())

// withCommit returns the provided version with the commit appended as build
// metadata.  Versions that already carry build metadata are left alone.
func withCommit(version, commit string) string {
	if commit == "" || strings.Contains(version, "+") {
		return version
	}
	return version + "+" + commit
}

// String returns the application version.  Development builds are identified
// by the commit they were built from.
func String() string {
	return withCommit(Version, commit)
}
