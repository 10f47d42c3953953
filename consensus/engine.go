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

// Package consensus implements the reputation-weighted proof-of-stake
// engine: a single-threaded round state machine producing at most one
// block per blockTime, driven by explicit prevote/precommit vote sets
// rather than in-turn signer rotation.
package consensus

import (
	"context"
	"errors"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/mempool"
	"github.com/driftchain/driftd/store"
	"github.com/driftchain/driftd/types"
	"github.com/driftchain/driftd/validator"
)

// State is the engine's coarse phase within one round.
type State int

const (
	Idle State = iota
	Proposing
	VotingPrevote
	VotingPrecommit
	Finalizing
)

func (s State) String() string {
	switch s {
	case Proposing:
		return "proposing"
	case VotingPrevote:
		return "voting-prevote"
	case VotingPrecommit:
		return "voting-precommit"
	case Finalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

var (
	ErrNotProposer      = errors.New("consensus: not proposer")
	ErrInvalidProposal  = errors.New("consensus: invalid proposal")
	ErrDoubleSign       = errors.New("consensus: double sign detected")
	ErrRoundTimeout     = errors.New("consensus: round timed out")
	ErrHeightStalled    = errors.New("consensus: height stalled")
)

// Config bundles the Consensus option group.
type Config struct {
	BlockTime              time.Duration
	MinValidators          int
	FinalizationThreshold  float64
	BlockProposalTimeout   time.Duration
	VotingTimeout          time.Duration
	MaxRound               uint64
	BlockSizeLimit         int
	ReputationNormalizer   float64
	ReputationCeiling      float64
	ReputationDecayFactor  float64
	ReputationGainFactor   float64
}

// Transport is the narrow network surface the engine needs: broadcasting
// proposals and votes and receiving peer votes/proposals.
type Transport interface {
	BroadcastBlock(b *types.Block)
	BroadcastVote(v Vote)
}

// Self identifies the local node's validator address and signing key, nil
// when running in observer (non-validator) mode.
type Self struct {
	Address types.Address
	Key     *crypto.PrivateKey
}

// Engine is the rPoS state machine.
type Engine struct {
	cfg       Config
	self      *Self
	store     *store.Store
	pool      *mempool.Pool
	validators *validator.Manager
	transport Transport
	log       log15.Logger

	height uint64
	round  uint64
	state  State

	prevotes   *voteSet
	precommits *voteSet
	proposal   *types.Block

	incomingProposal chan *types.Block
	incomingVote     chan Vote

	events chan<- Event
}

// Event is published by the engine for observers (CLI status, metrics).
type Event struct {
	Kind   string // proposer:selected, block:committed, height:stalled
	Height uint64
	Round  uint64
	Data   interface{}
}

func New(cfg Config, self *Self, st *store.Store, pool *mempool.Pool, validators *validator.Manager, transport Transport, events chan<- Event) *Engine {
	if cfg.FinalizationThreshold <= 0 {
		cfg.FinalizationThreshold = 2.0 / 3.0
	}
	nextHeight := uint64(0)
	if height, ok := st.GetHeight(); ok {
		nextHeight = height + 1
	}
	return &Engine{
		cfg:              cfg,
		self:             self,
		store:            st,
		pool:             pool,
		validators:       validators,
		transport:        transport,
		log:              nodelog.New("consensus"),
		height:           nextHeight,
		state:            Idle,
		prevotes:         newVoteSet(),
		precommits:       newVoteSet(),
		incomingProposal: make(chan *types.Block, 4),
		incomingVote:     make(chan Vote, 256),
		events:           events,
	}
}

// ReceiveProposal feeds an externally-gossiped block into the round's
// proposal wait, dropping it if the queue is saturated.
func (e *Engine) ReceiveProposal(b *types.Block) {
	select {
	case e.incomingProposal <- b:
	default:
	}
}

// ReceiveVote feeds an externally-gossiped vote into the current round.
func (e *Engine) ReceiveVote(v Vote) {
	select {
	case e.incomingVote <- v:
	default:
	}
}

// Run drives the engine continuously, pacing at most one block per
// blockTime, until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.BlockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.validators.TryUnjail(time.Now())
			e.RunRound(ctx)
		}
	}
}

// Height reports the height the engine is currently attempting to finalize.
func (e *Engine) Height() uint64 { return e.height }

// Round reports the current round number at Height.
func (e *Engine) Round() uint64 { return e.round }

// State reports the engine's current phase.
func (e *Engine) State() State { return e.state }

func (e *Engine) emit(kind string, data interface{}) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- Event{Kind: kind, Height: e.height, Round: e.round, Data: data}:
	default:
	}
}

// votingPowers snapshots current validator weights into a lookup map.
func (e *Engine) votingPowers() map[types.Address]float64 {
	powers := make(map[types.Address]float64)
	for _, w := range e.validators.VotingPowers(e.cfg.ReputationNormalizer, e.cfg.ReputationCeiling) {
		powers[w.Address] = w.Weight
	}
	return powers
}

func (e *Engine) totalActiveWeight(powers map[types.Address]float64) float64 {
	var total float64
	for _, w := range powers {
		total += w
	}
	return total
}

// RunRound executes one full attempt at height e.height, returning true if
// a block was finalized.
func (e *Engine) RunRound(ctx context.Context) bool {
	prevHash := e.currentHash()
	powers := e.votingPowers()
	if len(powers) < e.cfg.MinValidators {
		e.log.Warn("insufficient active validators", "have", len(powers), "want", e.cfg.MinValidators)
		return false
	}
	totalWeight := e.totalActiveWeight(powers)

	seed := proposerSeed(prevHash, e.height, e.round)
	proposer, err := e.validators.SelectValidator(seed, e.cfg.ReputationNormalizer, e.cfg.ReputationCeiling)
	if err != nil {
		e.log.Warn("proposer selection failed", "err", err)
		e.advanceRound()
		return false
	}
	e.emit("proposer:selected", proposer)

	e.state = Proposing
	proposal, parentTS := e.propose(ctx, proposer, prevHash)
	if proposal == nil {
		e.log.Debug("no valid proposal this round", "height", e.height, "round", e.round)
		e.advanceRound()
		return false
	}
	e.proposal = proposal

	e.state = VotingPrevote
	if !e.collectPrevotes(ctx, proposal, proposer, parentTS, powers, totalWeight) {
		e.advanceRound()
		return false
	}

	e.state = VotingPrecommit
	if !e.collectPrecommits(ctx, powers, totalWeight) {
		e.advanceRound()
		return false
	}

	e.state = Finalizing
	return e.finalize(proposer, powers)
}

func (e *Engine) currentHash() crypto.Hash {
	h, ok := e.store.GetHeight()
	if !ok {
		return crypto.Hash{}
	}
	blk, err := e.store.GetBlockByHeight(h)
	if err != nil {
		return crypto.Hash{}
	}
	return blk.Hash()
}

// propose builds and broadcasts a block when the local node is proposer,
// otherwise waits up to blockProposalTimeout for a matching announcement
// delivered externally via Engine.ReceiveProposal.
func (e *Engine) propose(ctx context.Context, proposer types.Address, prevHash crypto.Hash) (*types.Block, int64) {
	parentTS := e.parentTimestamp()

	if e.self != nil && e.self.Address == proposer {
		v, ok := e.validators.Get(proposer)
		if !ok || !v.Eligible() {
			return nil, parentTS
		}
		txs := e.pool.PickForBlock(1000, e.cfg.BlockSizeLimit)
		blk := buildProposal(e.height, prevHash, proposer, txs, time.Now().Unix())
		blk.Finalize(e.self.Key)
		if e.transport != nil {
			e.transport.BroadcastBlock(blk)
		}
		return blk, parentTS
	}

	select {
	case <-time.After(e.cfg.BlockProposalTimeout):
		return nil, parentTS
	case <-ctx.Done():
		return nil, parentTS
	case blk := <-e.incomingProposal:
		return blk, parentTS
	}
}

func (e *Engine) parentTimestamp() int64 {
	h, ok := e.store.GetHeight()
	if !ok {
		return 0
	}
	blk, err := e.store.GetBlockByHeight(h)
	if err != nil {
		return 0
	}
	return blk.Timestamp
}
