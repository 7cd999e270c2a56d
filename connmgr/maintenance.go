// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"sort"
	"time"

	"github.com/dashpool/p2poold/addrmgr"
	"github.com/decred/dcrd/crypto/rand"
)

// scoredPeer pairs a peer address with its score at the start of a
// maintenance cycle.
type scoredPeer struct {
	addr  addrmgr.NetAddress
	score float64
}

// shortOfPeers returns whether there are fewer live connections than the
// minimum.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) shortOfPeers() bool {
	return uint32(len(cm.conns)) < cm.cfg.MinPeers
}

// coolingDown returns whether a connection attempt to the provided peer failed
// too recently to try it again.  Expired entries are forgotten.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) coolingDown(addr addrmgr.NetAddress, now time.Time) bool {
	// Expiry is checked here instead of with lru.NewMapWithDefaultTTL since
	// the map's TTL always follows the wall clock rather than cfg.Clock.
	failedAt, ok := cm.failedDials.Peek(addr)
	if !ok {
		return false
	}
	if now.Sub(failedAt) >= cm.cfg.FailedDialCooldown {
		cm.failedDials.Delete(addr)
		return false
	}
	return true
}

// active returns whether the provided peer is connected or being connected
// to.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) active(addr addrmgr.NetAddress) bool {
	if _, ok := cm.conns[addr]; ok {
		return true
	}
	_, ok := cm.pending[addr]
	return ok
}

// maintain runs a maintenance cycle.  It reconnects the protected peers whose
// backoff has expired, connects to the best scoring known peers until the
// minimum number of peers is reached, and drops the worst scoring unprotected
// connections beyond the maximum number of peers.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) maintain(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	now := cm.cfg.Clock.Now()
	records := cm.cfg.AddrBook.Records()

	// Protected peers are always kept connected regardless of the limits.
	var candidates []scoredPeer
	for i := range records {
		rec := &records[i]
		if cm.active(rec.Addr) || cm.cfg.AddrBook.IsLocalAddress(rec.Addr) {
			continue
		}
		if rec.Protected {
			if r, ok := cm.retries[rec.Addr]; ok && now.Before(r.next) {
				continue
			}
			cm.startDial(ctx, rec.Addr, true)
			continue
		}
		if cm.coolingDown(rec.Addr, now) {
			continue
		}
		candidates = append(candidates, scoredPeer{
			addr:  rec.Addr,
			score: cm.cfg.AddrBook.Score(rec),
		})
	}

	// Fill up to the minimum with the best scoring candidates.  Candidates
	// are shuffled first so that peers with equal scores are picked in a
	// random order.
	active := uint32(len(cm.conns) + len(cm.pending))
	if active < cm.cfg.MinPeers && len(candidates) > 0 {
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].score > candidates[j].score
		})
		need := int(cm.cfg.MinPeers - active)
		if need > len(candidates) {
			need = len(candidates)
		}
		for _, c := range candidates[:need] {
			cm.startDial(ctx, c.addr, false)
		}
	}

	// Drop the worst scoring unprotected connections beyond the maximum.
	if excess := len(cm.conns) - int(cm.cfg.MaxPeers); excess > 0 {
		victims := make([]scoredPeer, 0, len(cm.conns))
		for addr, lc := range cm.conns {
			if lc.Protected {
				continue
			}
			var score float64
			if rec, ok := cm.cfg.AddrBook.Record(addr); ok {
				if rec.Protected {
					continue
				}
				score = cm.cfg.AddrBook.Score(&rec)
			}
			victims = append(victims, scoredPeer{addr: addr, score: score})
		}
		sort.Slice(victims, func(i, j int) bool {
			return victims[i].score < victims[j].score
		})
		if excess > len(victims) {
			excess = len(victims)
		}
		for _, v := range victims[:excess] {
			cm.teardown(cm.conns[v.addr], "evicted")
			cm.metrics.evictions.Inc()
		}
	}

	cm.updateGauges()
	cm.metrics.maintenanceCycles.Inc()
	log.Tracef("Maintenance: %d connected, %d connecting, %d candidates",
		len(cm.conns), len(cm.pending), len(candidates))
}
