// Copyright (c) 2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/dashpool/p2poold/addrmgr"
	"github.com/prometheus/client_golang/prometheus"
)

// failingDial is a dial function that never connects.
func failingDial(ctx context.Context, network, addr string) (net.Conn, error) {
	return nil, errors.New("connection refused")
}

// newTestConfig returns a config for the provided network that stores its data
// in a temporary directory and never connects to anything.
func newTestConfig(t *testing.T, p *params) *config {
	t.Helper()

	return &config{
		DataDir:       t.TempDir(),
		MinPeers:      1,
		MaxPeers:      2,
		MaxKnownPeers: 100,
		NoSeeders:     true,
		params:        p,
		dial:          failingDial,
	}
}

// mustParseNetAddress returns the parsed peer address and fails the test on
// error.
func mustParseNetAddress(t *testing.T, addr string) addrmgr.NetAddress {
	t.Helper()

	na, err := addrmgr.ParseNetAddress(addr)
	if err != nil {
		t.Fatalf("ParseNetAddress %s: %v", addr, err)
	}
	return na
}

// gaugeValue returns the value of the named gauge gathered from the registry.
func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) == 1 {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestNewServerPeers ensures the trusted node is protected and the requested
// peers are added as manual peers.
func TestNewServerPeers(t *testing.T) {
	cfg := newTestConfig(t, &regNetParams)
	cfg.trustedNode = mustParseNetAddress(t, "127.0.0.1:19899")
	cfg.addPeers = []addrmgr.NetAddress{
		mustParseNetAddress(t, "192.0.2.1:19899"),
		mustParseNetAddress(t, "192.0.2.2:19899"),
	}

	reg := prometheus.NewRegistry()
	s, err := newServer(cfg, reg)
	if err != nil {
		t.Fatalf("newServer: unexpected error %v", err)
	}

	rec, ok := s.addrManager.Record(cfg.trustedNode)
	if !ok || !rec.Protected {
		t.Fatalf("trusted node not protected: %v", rec)
	}
	for _, na := range cfg.addPeers {
		rec, ok := s.addrManager.Record(na)
		if !ok || rec.Protected || rec.Source != addrmgr.SourceManual {
			t.Fatalf("unexpected record for %v: %v", na, rec)
		}
	}
	if got := gaugeValue(t, reg, "p2poold_addrmgr_known_peers"); got != 3 {
		t.Fatalf("unexpected known peers -- got %v, want 3", got)
	}
}

// TestNewServerCorruptDatabase ensures an unreadable peer database prevents
// startup unless it is allowed to be reset.
func TestNewServerCorruptDatabase(t *testing.T) {
	cfg := newTestConfig(t, &mainNetParams)
	peersFile := addrmgr.PeersFilePath(cfg.DataDir, mainNetParams.Name)
	if err := os.WriteFile(peersFile, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := newServer(cfg, prometheus.NewRegistry())
	if !errors.Is(err, addrmgr.ErrDatabaseCorrupt) {
		t.Fatalf("unexpected error -- got %v, want %v", err,
			addrmgr.ErrDatabaseCorrupt)
	}

	cfg.ResetCorruptPeers = true
	if _, err := newServer(cfg, prometheus.NewRegistry()); err != nil {
		t.Fatalf("newServer: unexpected error %v", err)
	}
	if _, err := os.Stat(peersFile + ".corrupt"); err != nil {
		t.Fatalf("corrupt database not moved aside: %v", err)
	}
	if _, err := os.Stat(peersFile); !os.IsNotExist(err) {
		t.Fatalf("corrupt database still in place: %v", err)
	}
}

// TestServerRun ensures the peer database is saved when the server shuts down
// and reloaded by the next server.
func TestServerRun(t *testing.T) {
	cfg := newTestConfig(t, &regNetParams)
	cfg.trustedNode = mustParseNetAddress(t, "127.0.0.1:19899")

	s, err := newServer(cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newServer: unexpected error %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}

	peersFile := filepath.Join(cfg.DataDir, "peers-regtest.json")
	if _, err := os.Stat(peersFile); err != nil {
		t.Fatalf("peer database not saved: %v", err)
	}

	s, err = newServer(cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newServer: unexpected error %v", err)
	}
	if got := s.addrManager.NumAddresses(); got != 1 {
		t.Fatalf("unexpected number of peers -- got %d, want 1", got)
	}
}

// TestQuerySeeders ensures peers discovered through the DNS seeds are added as
// bootstrap peers and the peer database is marked bootstrapped.
func TestQuerySeeders(t *testing.T) {
	seeded := params{
		Name:        "seedtest",
		DefaultPort: 19999,
		DNSSeeds:    []string{"seed1.example.org", "seed2.example.org"},
	}
	cfg := newTestConfig(t, &seeded)
	cfg.lookup = func(ctx context.Context, host string) ([]netip.Addr, error) {
		if host != "seed1.example.org" {
			return nil, errors.New("no such host")
		}
		return []netip.Addr{
			netip.MustParseAddr("192.0.2.1"),
			netip.MustParseAddr("192.0.2.2"),
		}, nil
	}

	s, err := newServer(cfg, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newServer: unexpected error %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.connManager.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	s.querySeeders(ctx)
	if !s.addrManager.Bootstrapped() {
		t.Fatal("peer database not marked bootstrapped")
	}
	if got := s.addrManager.NumAddresses(); got != 2 {
		t.Fatalf("unexpected number of peers -- got %d, want 2", got)
	}
	for _, rec := range s.addrManager.Records() {
		if rec.Source != addrmgr.SourceBootstrap {
			t.Fatalf("unexpected source for %v: %v", rec.Addr, rec.Source)
		}
	}
}
