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
	"context"
	"time"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

// collectPrevotes runs the Prevote sub-phase: every active validator casts
// a ballot for the proposal hash (if valid) or nil, until finalizationThreshold
// of total active weight is observed or votingTimeout elapses.
func (e *Engine) collectPrevotes(ctx context.Context, proposal *types.Block, proposer types.Address, parentTS int64, powers map[types.Address]float64, totalWeight float64) bool {
	e.prevotes = newVoteSet()

	if e.self != nil {
		if v, ok := e.validators.Get(e.self.Address); ok && v.Eligible() {
			proposerKey := e.proposerPublicKey(proposer)
			vote := Vote{Validator: e.self.Address, Phase: Prevote}
			if proposerKey != nil && validateProposal(proposal, e.height, e.prevHashOf(proposal), proposer, proposerKey, parentTS, e.cfg.BlockSizeLimit) == nil {
				vote.Hash = proposal.Hash()
			} else {
				vote.IsNil = true
			}
			e.castVote(vote)
		}
	}

	return e.collectUntilThreshold(ctx, e.prevotes, proposal.Hash(), powers, totalWeight)
}

// collectPrecommits runs the Precommit sub-phase.
func (e *Engine) collectPrecommits(ctx context.Context, powers map[types.Address]float64, totalWeight float64) bool {
	e.precommits = newVoteSet()

	leading, weight := e.prevotes.leadingHash(powers)
	hasQuorum := totalWeight > 0 && weight/totalWeight >= e.cfg.FinalizationThreshold

	if e.self != nil {
		if v, ok := e.validators.Get(e.self.Address); ok && v.Eligible() {
			vote := Vote{Validator: e.self.Address, Phase: Precommit}
			if hasQuorum {
				vote.Hash = leading
			} else {
				vote.IsNil = true
			}
			e.castVote(vote)
		}
	}

	return e.collectUntilThreshold(ctx, e.precommits, leading, powers, totalWeight)
}

// castVote records the local vote and broadcasts it.
func (e *Engine) castVote(v Vote) {
	e.recordVote(e.phaseSet(v.Phase), v, v.Phase)
	if e.transport != nil {
		e.transport.BroadcastVote(v)
	}
}

func (e *Engine) phaseSet(phase VotePhase) *voteSet {
	if phase == Prevote {
		return e.prevotes
	}
	return e.precommits
}

// recordVote adds v to set, handling equivocation by handing evidence to
// ValidatorManager and purging the offender's vote.
func (e *Engine) recordVote(set *voteSet, v Vote, phase VotePhase) {
	prior, equivocated := set.add(v)
	if !equivocated {
		return
	}
	e.log.Warn("equivocation detected", "validator", v.Validator, "height", e.height, "round", e.round, "phase", phase)
	evidence := equivocationEvidence(e.height, e.round, phase, prior, v)
	if err := e.validators.RecordEquivocation(v.Validator, evidence); err != nil {
		e.log.Error("record equivocation", "err", err)
	}
	set.purge(v.Validator)
}

func equivocationEvidence(height, round uint64, phase VotePhase, a, b Vote) string {
	return "double vote at height=" + encodeDecimal(height) + " round=" + encodeDecimal(round)
}

func encodeDecimal(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// collectUntilThreshold drains incoming votes into set until quorum weight
// for targetHash is reached or votingTimeout elapses.
func (e *Engine) collectUntilThreshold(ctx context.Context, set *voteSet, targetHash crypto.Hash, powers map[types.Address]float64, totalWeight float64) bool {
	deadline := time.After(e.cfg.VotingTimeout)
	for {
		if totalWeight > 0 && set.weightFor(targetHash, powers)/totalWeight >= e.cfg.FinalizationThreshold {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline:
			return totalWeight > 0 && set.weightFor(targetHash, powers)/totalWeight >= e.cfg.FinalizationThreshold
		case v := <-e.incomingVote:
			e.recordVote(set, v, v.Phase)
		}
	}
}

// finalize commits the proposal once precommit quorum is reached.
func (e *Engine) finalize(proposer types.Address, powers map[types.Address]float64) bool {
	if e.proposal == nil {
		e.validators.RecordProposal(proposer, false, time.Now())
		return false
	}

	ok, err := e.store.AddBlock(e.proposal, proposer, e.validatorKeyLookup())
	if err != nil || !ok {
		e.log.Warn("finalize rejected", "height", e.height, "err", err)
		if _, rerr := e.validators.RecordProposal(proposer, false, time.Now()); rerr != nil {
			e.log.Error("record missed proposal", "err", rerr)
		}
		return false
	}

	e.pool.RemoveCommitted(e.proposal.Transactions)
	if _, err := e.validators.RecordProposal(proposer, true, time.Now()); err != nil {
		e.log.Error("record successful proposal", "err", err)
	}
	e.applyReputationUpdate(proposer)
	e.emit("block:committed", e.proposal)

	e.height++
	e.round = 0
	e.proposal = nil
	return true
}

func (e *Engine) applyReputationUpdate(active types.Address) {
	activeSet := map[types.Address]bool{active: true}
	e.validators.ApplyReputationDecay(activeSet, e.cfg.ReputationDecayFactor, e.cfg.ReputationGainFactor)
}

// advanceRound bumps R without bumping H, emitting height:stalled once
// maxRound is exceeded.
func (e *Engine) advanceRound() {
	e.round++
	e.proposal = nil
	if e.cfg.MaxRound > 0 && e.round >= e.cfg.MaxRound {
		e.emit("height:stalled", e.height)
		e.log.Error("height stalled, awaiting external intervention", "height", e.height, "round", e.round)
	}
}

func (e *Engine) prevHashOf(b *types.Block) crypto.Hash {
	return b.PreviousHash
}

// proposerPublicKey resolves proposer's public key via the ValidatorManager.
func (e *Engine) proposerPublicKey(proposer types.Address) *crypto.PublicKey {
	pub, ok := e.validators.PublicKey(proposer)
	if !ok {
		return nil
	}
	return pub
}

func (e *Engine) validatorKeyLookup() keyLookupFunc {
	return keyLookupFunc(e.proposerPublicKey)
}

type keyLookupFunc func(types.Address) *crypto.PublicKey

func (f keyLookupFunc) PublicKey(addr types.Address) (*crypto.PublicKey, bool) {
	pub := f(addr)
	return pub, pub != nil
}
