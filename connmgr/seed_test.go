// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"net/netip"
	"sort"
	"sync"
	"testing"

	"github.com/dashpool/p2poold/addrmgr"
)

// mockResolver answers DNS seed lookups from a static table.
type mockResolver map[string][]netip.Addr

func (r mockResolver) lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	ips, ok := r[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return ips, nil
}

// TestSeedFromDNS ensures addresses returned by the DNS seeds are passed to the
// seed callback with the default port of the network.
func TestSeedFromDNS(t *testing.T) {
	resolver := mockResolver{
		"seed1.example.org": {
			netip.MustParseAddr("192.0.2.1"),
			netip.MustParseAddr("::ffff:192.0.2.2"),
		},
		"seed2.example.org": {
			netip.MustParseAddr("2001:db8::1"),
			netip.IPv4Unspecified(),
		},
		"empty.example.org": nil,
	}
	seeds := []string{"seed1.example.org", "seed2.example.org",
		"empty.example.org", "broken.example.org"}

	var mtx sync.Mutex
	var got []string
	total, err := SeedFromDNS(context.Background(), seeds, 19999,
		resolver.lookup, func(addrs []addrmgr.NetAddress) {
			mtx.Lock()
			for _, addr := range addrs {
				got = append(got, addr.String())
			}
			mtx.Unlock()
		})
	if err != nil {
		t.Fatalf("SeedFromDNS: unexpected error %v", err)
	}
	if total != 3 {
		t.Fatalf("unexpected total -- got %d, want 3", total)
	}

	want := []string{"192.0.2.1:19999", "192.0.2.2:19999", "[2001:db8::1]:19999"}
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("unexpected addresses -- got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected addresses -- got %v, want %v", got, want)
		}
	}
}

// TestSeedFromDNSNoResults ensures an error is returned when none of the seeds
// returned any usable addresses.
func TestSeedFromDNSNoResults(t *testing.T) {
	resolver := mockResolver{"empty.example.org": nil}
	seeds := []string{"empty.example.org", "broken.example.org"}

	var called bool
	total, err := SeedFromDNS(context.Background(), seeds, 19999,
		resolver.lookup, func([]addrmgr.NetAddress) { called = true })
	if !errors.Is(err, ErrNoSeedResults) {
		t.Fatalf("unexpected error -- got %v, want %v", err, ErrNoSeedResults)
	}
	if total != 0 || called {
		t.Fatalf("unexpected results -- total %d, called %v", total, called)
	}
}

// TestSeedFromDNSCanceled ensures seeding stops when the context is canceled.
func TestSeedFromDNSCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lookup := func(ctx context.Context, host string) ([]netip.Addr, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := SeedFromDNS(ctx, []string{"seed1.example.org"}, 19999, lookup,
		func([]addrmgr.NetAddress) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error -- got %v, want %v", err, context.Canceled)
	}
}
