// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dashpool/p2poold/addrmgr"
)

// testRecords returns a set of peer records with distinct scores at now.
func testRecords(t *testing.T, now time.Time) []addrmgr.PeerRecord {
	t.Helper()

	mustAddr := func(addr string) addrmgr.NetAddress {
		na, err := addrmgr.ParseNetAddress(addr)
		if err != nil {
			t.Fatalf("ParseNetAddress %s: %v", addr, err)
		}
		return na
	}
	return []addrmgr.PeerRecord{{
		Addr:                 mustAddr("192.0.2.1:9999"),
		LastSeen:             now.Add(-48 * time.Hour),
		Source:               addrmgr.SourceDiscovery,
		FailedBroadcasts:     3,
		SuccessfulBroadcasts: 1,
	}, {
		Addr:      mustAddr("127.0.0.1:9999"),
		LastSeen:  now,
		Source:    addrmgr.SourceBootstrap,
		Protected: true,
	}, {
		Addr:                 mustAddr("192.0.2.2:9999"),
		LastSeen:             now,
		Source:               addrmgr.SourceDiscovery,
		SuccessfulBroadcasts: 5,
	}, {
		Addr:     mustAddr("192.0.2.3:9999"),
		LastSeen: now.Add(-time.Hour),
		Source:   addrmgr.SourceManual,
	}}
}

// TestRankPeers ensures records are filtered and ordered by score.
func TestRankPeers(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		name string
		cfg  config
		want []string
	}{{
		name: "all",
		want: []string{"127.0.0.1:9999", "192.0.2.2:9999", "192.0.2.3:9999",
			"192.0.2.1:9999"},
	}, {
		name: "limit",
		cfg:  config{Limit: 2},
		want: []string{"127.0.0.1:9999", "192.0.2.2:9999"},
	}, {
		name: "source",
		cfg:  config{Source: string(addrmgr.SourceDiscovery)},
		want: []string{"192.0.2.2:9999", "192.0.2.1:9999"},
	}, {
		name: "protected",
		cfg:  config{Protected: true},
		want: []string{"127.0.0.1:9999"},
	}}

	for _, test := range tests {
		ranked := rankPeers(&test.cfg, testRecords(t, now), now)
		if len(ranked) != len(test.want) {
			t.Errorf("%s: unexpected number of peers -- got %d, want %d",
				test.name, len(ranked), len(test.want))
			continue
		}
		for i, r := range ranked {
			if r.Addr.String() != test.want[i] {
				t.Errorf("%s: unexpected peer at %d -- got %v, want %v",
					test.name, i, r.Addr, test.want[i])
			}
		}
	}
}

// TestWritePeers ensures the table shows protected peers with the maximum
// score.
func TestWritePeers(t *testing.T) {
	now := time.Unix(1700000000, 0)
	var cfg config
	ranked := rankPeers(&cfg, testRecords(t, now), now)

	var buf bytes.Buffer
	if err := writePeers(&buf, ranked, now); err != nil {
		t.Fatalf("writePeers: unexpected error %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(ranked)+1 {
		t.Fatalf("unexpected number of lines %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ADDRESS") {
		t.Fatalf("missing header: %q", lines[0])
	}
	fields := strings.Fields(lines[1])
	if fields[0] != "127.0.0.1:9999" || fields[1] != "max" {
		t.Fatalf("unexpected protected peer row: %q", lines[1])
	}
}
