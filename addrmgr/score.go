// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"math"
	"time"
)

// MaxScore is the score of every protected peer.  No unprotected peer can
// reach it.
const MaxScore = math.MaxFloat64

// ScoringParams houses the tunable weights used to score peers.
type ScoringParams struct {
	// ReliabilityWeight scales the ratio of successful to total sessions.
	ReliabilityWeight float64

	// NeutralReliability is the ratio assumed for a peer with no session
	// history.
	NeutralReliability float64

	// RecencyWeight is the recency contribution of a peer seen right now.
	RecencyWeight float64

	// RecencyHalfLife is the age at which the recency contribution halves.
	RecencyHalfLife time.Duration

	// StaleAfter is the age beyond which a peer gets no recency contribution.
	StaleAfter time.Duration

	// ProvenanceBonus is added for peers that did not come from gossip.
	ProvenanceBonus float64
}

// DefaultScoringParams are the scoring weights used by Score.
var DefaultScoringParams = ScoringParams{
	ReliabilityWeight:  60,
	NeutralReliability: 0.5,
	RecencyWeight:      30,
	RecencyHalfLife:    30 * time.Minute,
	StaleAfter:         24 * time.Hour,
	ProvenanceBonus:    10,
}

// Score returns the desirability of the peer at the provided time using the
// default scoring parameters.  Higher is better.
func Score(rec *PeerRecord, now time.Time) float64 {
	return DefaultScoringParams.Score(rec, now)
}

// Score returns the desirability of the peer at the provided time.  The result
// only depends on the record and the time, so it is always safe to recompute.
func (p *ScoringParams) Score(rec *PeerRecord, now time.Time) float64 {
	if rec.Protected {
		return MaxScore
	}

	ratio := p.NeutralReliability
	total := rec.SuccessfulBroadcasts + rec.FailedBroadcasts
	if total > 0 {
		ratio = float64(rec.SuccessfulBroadcasts) / float64(total)
	}
	score := p.ReliabilityWeight * ratio

	score += p.recency(now.Sub(rec.LastSeen))

	if rec.Source.trusted() {
		score += p.ProvenanceBonus
	}
	return score
}

// recency returns the recency contribution for a peer last seen age ago.  It
// decreases monotonically with age and is zero once the peer is stale.
func (p *ScoringParams) recency(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	if p.StaleAfter > 0 && age >= p.StaleAfter {
		return 0
	}
	if p.RecencyHalfLife <= 0 {
		return p.RecencyWeight
	}
	halvings := float64(age) / float64(p.RecencyHalfLife)
	return p.RecencyWeight * math.Exp2(-halvings)
}
