// Copyright 2026 The Drift Authors
// This file is part of the drift library.
//
// The drift library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The drift library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the drift library. If not, see <http://www.gnu.org/licenses/>.

package consensus

import (
	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

// VotePhase distinguishes the two voting sub-phases of a round.
type VotePhase int

const (
	Prevote VotePhase = iota
	Precommit
)

// Vote is one validator's ballot for a round; IsNil marks a vote for nil,
// in which case Hash is ignored.
type Vote struct {
	Validator types.Address
	Phase     VotePhase
	Hash      crypto.Hash
	IsNil     bool
}

// voteSet accumulates votes for a single (height, round, phase), keyed by
// validator so a later vote from the same validator replaces the earlier
// one while still letting the caller detect equivocation.
type voteSet struct {
	votes map[types.Address]Vote
}

func newVoteSet() *voteSet {
	return &voteSet{votes: make(map[types.Address]Vote)}
}

// add records vote, returning the previous vote if the validator had
// already voted differently this phase (consensus equivocation evidence).
func (vs *voteSet) add(v Vote) (prior Vote, equivocated bool) {
	existing, ok := vs.votes[v.Validator]
	if ok && (existing.IsNil != v.IsNil || existing.Hash != v.Hash) {
		vs.votes[v.Validator] = v
		return existing, true
	}
	vs.votes[v.Validator] = v
	return Vote{}, false
}

// purge removes a validator's vote from the set, used when equivocation is
// confirmed and the offender's votes must not count toward quorum.
func (vs *voteSet) purge(addr types.Address) {
	delete(vs.votes, addr)
}

// weightFor sums the voting power of every non-nil vote for hash.
func (vs *voteSet) weightFor(hash crypto.Hash, powers map[types.Address]float64) float64 {
	var total float64
	for _, v := range vs.votes {
		if !v.IsNil && v.Hash == hash {
			total += powers[v.Validator]
		}
	}
	return total
}

// totalWeight sums the voting power of every vote cast so far, nil or not.
func (vs *voteSet) totalWeight(powers map[types.Address]float64) float64 {
	var total float64
	for addr := range vs.votes {
		total += powers[addr]
	}
	return total
}

// leadingHash returns the non-nil hash with the greatest accumulated
// weight, used to decide what to precommit.
func (vs *voteSet) leadingHash(powers map[types.Address]float64) (crypto.Hash, float64) {
	totals := make(map[crypto.Hash]float64)
	for _, v := range vs.votes {
		if !v.IsNil {
			totals[v.Hash] += powers[v.Validator]
		}
	}
	var best crypto.Hash
	var bestWeight float64
	for h, w := range totals {
		if w > bestWeight {
			best = h
			bestWeight = w
		}
	}
	return best, bestWeight
}
