// Copyright (c) 2021 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package version

import "runtime/debug"

// readBuildInfo returns the build information embedded in the binary or nil
// when there is none.
func readBuildInfo() *debug.BuildInfo {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return bi
}

// vcsCommitID returns the abbreviated revision recorded in the provided build
// information or an empty string when the binary was not built from a
// checkout.
func vcsCommitID(bi *debug.BuildInfo) string {
	if bi == nil {
		return ""
	}
	var vcs, revision string
	for _, bs := range bi.Settings {
		switch bs.Key {
		case "vcs":
			vcs = bs.Value
		case "vcs.revision":
			revision = bs.Value
		}
	}
	if vcs == "" {
		return ""
	}
	if vcs == "git" && len(revision) > 9 {
		revision = revision[:9]
	}
	return revision
}
