// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dashpool/p2poold/addrmgr"
)

// testConfigArgs returns the arguments that keep loadConfig from touching
// anything outside of a temporary application directory along with the
// provided extra arguments.
func testConfigArgs(t *testing.T, extra ...string) []string {
	t.Helper()

	args := []string{"--appdata=" + t.TempDir(), "--nofilelogging"}
	return append(args, extra...)
}

// mustLoadConfig loads the config from the provided arguments and fails the
// test on error.
func mustLoadConfig(t *testing.T, args []string) *config {
	t.Helper()

	cfg, _, err := loadConfig("p2poold", args)
	if err != nil {
		t.Fatalf("loadConfig %v: unexpected error %v", args, err)
	}
	return cfg
}

// TestLoadConfigDefaults ensures the default config is sane and that a sample
// config file is created in the application directory.
func TestLoadConfigDefaults(t *testing.T) {
	appData := t.TempDir()
	cfg := mustLoadConfig(t, []string{"--appdata=" + appData, "--nofilelogging"})

	if cfg.params != &mainNetParams {
		t.Fatalf("unexpected network %s", cfg.params.Name)
	}
	if cfg.MinPeers != defaultMinPeers || cfg.MaxPeers != defaultMaxPeers {
		t.Fatalf("unexpected peer limits %d/%d", cfg.MinPeers, cfg.MaxPeers)
	}
	if cfg.MaintenanceInterval != defaultMaintenanceInterval {
		t.Fatalf("unexpected maintenance interval %v", cfg.MaintenanceInterval)
	}
	if cfg.DataDir != filepath.Join(appData, defaultDataDirname) {
		t.Fatalf("unexpected data dir %s", cfg.DataDir)
	}
	want, err := addrmgr.ParseNetAddress("127.0.0.1:9999")
	if err != nil {
		t.Fatalf("ParseNetAddress: %v", err)
	}
	if cfg.trustedNode != want {
		t.Fatalf("unexpected trusted node -- got %v, want %v", cfg.trustedNode,
			want)
	}
	if cfg.dial == nil || cfg.lookup == nil {
		t.Fatal("dial and lookup functions not set")
	}

	confFile := filepath.Join(appData, defaultConfigFilename)
	if _, err := os.Stat(confFile); err != nil {
		t.Fatalf("sample config file not created: %v", err)
	}
}

// TestLoadConfigNetworks ensures peer addresses use the default port of the
// selected network.
func TestLoadConfigNetworks(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantParams  *params
		wantTrusted string
		wantPeers   []string
		wantLocal   []string
	}{{
		name:        "mainnet",
		args:        []string{"--addpeer=192.0.2.1", "--addpeer=[2001:db8::1]:9998"},
		wantParams:  &mainNetParams,
		wantTrusted: "127.0.0.1:9999",
		wantPeers:   []string{"192.0.2.1:9999", "[2001:db8::1]:9998"},
	}, {
		name:        "testnet",
		args:        []string{"--testnet", "--addpeer=192.0.2.1", "--externalip=198.51.100.1"},
		wantParams:  &testNet3Params,
		wantTrusted: "127.0.0.1:19999",
		wantPeers:   []string{"192.0.2.1:19999"},
		wantLocal:   []string{"198.51.100.1:19999"},
	}, {
		name:        "regtest with custom trusted node",
		args:        []string{"--regtest", "--trustednode=10.0.0.5:20000", "--externalip=198.51.100.1:1234"},
		wantParams:  &regNetParams,
		wantTrusted: "10.0.0.5:20000",
		wantLocal:   []string{"198.51.100.1:1234"},
	}, {
		name:       "no trusted node",
		args:       []string{"--trustednode="},
		wantParams: &mainNetParams,
	}}

	for _, test := range tests {
		cfg := mustLoadConfig(t, testConfigArgs(t, test.args...))
		if cfg.params != test.wantParams {
			t.Errorf("%s: unexpected network %s", test.name, cfg.params.Name)
			continue
		}
		var trusted string
		if cfg.trustedNode.IsValid() {
			trusted = cfg.trustedNode.String()
		}
		if trusted != test.wantTrusted {
			t.Errorf("%s: unexpected trusted node -- got %q, want %q",
				test.name, trusted, test.wantTrusted)
		}
		if len(cfg.addPeers) != len(test.wantPeers) {
			t.Errorf("%s: unexpected peers %v", test.name, cfg.addPeers)
			continue
		}
		for i, na := range cfg.addPeers {
			if na.String() != test.wantPeers[i] {
				t.Errorf("%s: unexpected peer -- got %v, want %v", test.name,
					na, test.wantPeers[i])
			}
		}
		if len(cfg.localAddrs) != len(test.wantLocal) {
			t.Errorf("%s: unexpected local addresses %v", test.name,
				cfg.localAddrs)
			continue
		}
		for i, na := range cfg.localAddrs {
			if na.String() != test.wantLocal[i] {
				t.Errorf("%s: unexpected local address -- got %v, want %v",
					test.name, na, test.wantLocal[i])
			}
		}
	}
}

// TestLoadConfigErrors ensures invalid options are rejected.
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"multiple networks", []string{"--testnet", "--regtest"}},
		{"min above max", []string{"--minpeers=9", "--maxpeers=8"}},
		{"no max", []string{"--maxpeers=0"}},
		{"no min", []string{"--minpeers=0"}},
		{"known below max", []string{"--maxknownpeers=2"}},
		{"trusted node hostname", []string{"--trustednode=localhost"}},
		{"bad peer", []string{"--addpeer=192.0.2.1:0"}},
		{"bad external ip", []string{"--externalip=example.com"}},
		{"bad proxy", []string{"--proxy=127.0.0.1"}},
		{"bad debug level", []string{"--debuglevel=verbose"}},
		{"bad subsystem", []string{"--debuglevel=XXXX=debug"}},
		{"unknown option", []string{"--rpcuser=foo"}},
	}

	for _, test := range tests {
		_, _, err := loadConfig("p2poold", testConfigArgs(t, test.args...))
		if err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}

// TestLoadConfigFile ensures options are read from the config file and that
// command line options take precedence.
func TestLoadConfigFile(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "custom.conf")
	contents := "[Application Options]\nmaxpeers=12\nminpeers=6\n" +
		"maintenanceinterval=1m\nresetcorruptpeers=1\n"
	if err := os.WriteFile(confFile, []byte(contents), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := mustLoadConfig(t, testConfigArgs(t, "-C", confFile, "--minpeers=5"))
	if cfg.MaxPeers != 12 || cfg.MinPeers != 5 {
		t.Fatalf("unexpected peer limits %d/%d", cfg.MinPeers, cfg.MaxPeers)
	}
	if cfg.MaintenanceInterval != time.Minute {
		t.Fatalf("unexpected maintenance interval %v", cfg.MaintenanceInterval)
	}
	if !cfg.ResetCorruptPeers {
		t.Fatal("resetcorruptpeers not read from the config file")
	}
}

// TestParseAndSetDebugLevels ensures debug levels are validated.
func TestParseAndSetDebugLevels(t *testing.T) {
	defer setLogLevels(defaultLogLevel)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"AMGR=trace,CMGR=debug", false},
		{"SRVR=warn", false},
		{"bogus", true},
		{"AMGR", true},
		{"AMGR=debug,", true},
		{"NOPE=debug", true},
		{"CMGR=loud", true},
	}

	for _, test := range tests {
		err := parseAndSetDebugLevels(test.level)
		if (err != nil) != test.wantErr {
			t.Errorf("%q: unexpected error result -- got %v, want error %v",
				test.level, err, test.wantErr)
		}
	}
}
