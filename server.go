// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/dashpool/p2poold/addrmgr"
	"github.com/dashpool/p2poold/connmgr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	// seederTimeout is the maximum amount of time a round of DNS seed
	// queries may take.
	seederTimeout = time.Minute

	// maxSeederBackoff is the maximum delay between failed rounds of DNS
	// seed queries.
	maxSeederBackoff = time.Minute
)

// server houses the peer discovery and connection management subsystems of
// the node.
type server struct {
	cfg         *config
	addrManager *addrmgr.AddrManager
	connManager *connmgr.ConnManager
}

// peerConnected is invoked by the connection manager when a new outbound
// connection is established.
func (s *server) peerConnected(c connmgr.ConnectionRecord) {
	if c.Protected {
		srvrLog.Infof("Connected to trusted node %v", c.Addr)
		return
	}
	srvrLog.Debugf("New peer %v", &c)
}

// peerDisconnected is invoked by the connection manager when an outbound
// connection ends.
func (s *server) peerDisconnected(c connmgr.ConnectionRecord, err error) {
	switch {
	case c.Protected && err != nil:
		srvrLog.Warnf("Lost connection to trusted node %v: %v", c.Addr, err)
	case c.Protected:
		srvrLog.Infof("Disconnected from trusted node %v", c.Addr)
	case err != nil:
		srvrLog.Debugf("Lost peer %v: %v", &c, err)
	default:
		srvrLog.Debugf("Peer %v disconnected", &c)
	}
}

// needSeeding returns whether the DNS seeds should be queried.
func (s *server) needSeeding() bool {
	return !s.addrManager.Bootstrapped() || s.addrManager.NeedMoreAddresses()
}

// querySeeders queries the DNS seeds of the network to discover peers and adds
// them to the address manager.  Rounds of queries that yield no addresses are
// retried with an increasing delay until the context is canceled.
func (s *server) querySeeders(ctx context.Context) {
	seeds := s.cfg.params.DNSSeeds
	if len(seeds) == 0 || !s.needSeeding() {
		return
	}

	onSeed := func(addrs []addrmgr.NetAddress) {
		n := s.addrManager.AddAddresses(addrs, addrmgr.SourceBootstrap)
		srvrLog.Debugf("Added %d of %d seeded addresses", n, len(addrs))
	}

	backoff := time.Second
	for {
		seedCtx, cancel := context.WithTimeout(ctx, seederTimeout)
		total, err := connmgr.SeedFromDNS(seedCtx, seeds,
			s.cfg.params.DefaultPort, s.cfg.lookup, onSeed)
		cancel()
		switch {
		case ctx.Err() != nil:
			return

		case err == nil:
			srvrLog.Infof("Discovered %d addresses from %d DNS seeds", total,
				len(seeds))
			s.addrManager.SetBootstrapped(true)
			if err := s.addrManager.Save(); err != nil {
				srvrLog.Warnf("Unable to save peers: %v", err)
			}

			// Put the new addresses to use right away.  It only fails
			// when the connection manager is shutting down.
			s.connManager.Maintain()
			return

		case !errors.Is(err, connmgr.ErrNoSeedResults):
			srvrLog.Warnf("DNS seeding failed: %v", err)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < maxSeederBackoff {
			backoff *= 2
		}
	}
}

// Run starts the server and blocks until the provided context is cancelled.
// The peer database is saved one final time before it returns and the result
// of that save is returned.
func (s *server) Run(ctx context.Context) error {
	srvrLog.Trace("Starting server")

	// Start the address manager which periodically saves the known peers.
	s.addrManager.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.connManager.Run(gctx)
		return nil
	})
	if !s.cfg.NoSeeders {
		g.Go(func() error {
			s.querySeeders(gctx)
			return nil
		})
	}
	err := g.Wait()

	srvrLog.Info("Server shutting down")
	return multierr.Append(err, s.addrManager.Stop())
}

// newServer returns a new server configured to discover and connect to the
// peers of the network specified by the provided configuration.  The metrics
// of the subsystems are registered with the provided registerer.
func newServer(cfg *config, reg prometheus.Registerer) (*server, error) {
	amgr := addrmgr.New(&addrmgr.Config{
		DataDir:        cfg.DataDir,
		Network:        cfg.params.Name,
		LocalAddresses: cfg.localAddrs,
		MaxKnownPeers:  cfg.MaxKnownPeers,
	})
	if err := amgr.Load(); err != nil {
		if !errors.Is(err, addrmgr.ErrDatabaseCorrupt) || !cfg.ResetCorruptPeers {
			return nil, err
		}
		srvrLog.Warnf("Peer database is unreadable: %v", err)
		if err := amgr.DiscardCorruptDatabase(); err != nil {
			return nil, err
		}
	}

	// Protect the trusted node and add the requested peers.
	if cfg.trustedNode.IsValid() {
		if err := amgr.RegisterTrusted(cfg.trustedNode); err != nil {
			return nil, err
		}
		srvrLog.Infof("Trusted node: %v", cfg.trustedNode)
	}
	for _, na := range cfg.addPeers {
		if _, err := amgr.AddAddress(na, addrmgr.SourceManual); err != nil {
			srvrLog.Warnf("Unable to add peer %v: %v", na, err)
		}
	}

	knownPeers := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "p2poold",
		Subsystem: "addrmgr",
		Name:      "known_peers",
		Help:      "Number of peers in the peer database.",
	}, func() float64 {
		return float64(amgr.NumAddresses())
	})
	if err := reg.Register(knownPeers); err != nil {
		return nil, err
	}

	s := server{
		cfg:         cfg,
		addrManager: amgr,
	}
	cmgr, err := connmgr.New(&connmgr.Config{
		AddrBook:            amgr,
		MinPeers:            uint32(cfg.MinPeers),
		MaxPeers:            uint32(cfg.MaxPeers),
		MaintenanceInterval: cfg.MaintenanceInterval,
		Dial:                cfg.dial,
		Timeout:             cfg.DialTimeout,
		OnConnection:        s.peerConnected,
		OnDisconnection:     s.peerDisconnected,
		Registerer:          reg,
	})
	if err != nil {
		return nil, err
	}
	s.connManager = cmgr
	return &s, nil
}
