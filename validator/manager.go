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

// Package validator owns validator records and mediates every state
// transition across the Active/Inactive/Jailed/Tombstoned lifecycle.
package validator

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/types"
)

// baselineReputation seeds every newly-registered validator above zero:
// ApplyReputationDecay's gain/decay steps are multiplicative (config
// defaults 1.02/0.98), so a zero starting value never leaves zero no matter
// how many active rounds a validator racks up.
const baselineReputation = 100

var (
	ErrAlreadyRegistered = errors.New("validator: address already registered")
	ErrStakeTooLow        = errors.New("validator: stake below minimum")
	ErrNotFound           = errors.New("validator: not found")
	ErrNotEligible        = errors.New("validator: not eligible to activate")
	ErrTombstoned         = errors.New("validator: tombstoned")
)

// Config bundles the policy knobs that govern validator-state transitions.
type Config struct {
	MinStake                types.Amount
	MissedBlocksBeforeJail  int
	JailTime                int // multiple of BlockTime
	BlockTime               time.Duration
	SlashingPenalty         float64
	DistributionPeriodDays  int
	DeveloperReward         types.Amount
	ValidatorReward         types.Amount
	GenesisTime             time.Time
}

// Manager owns the validator set and is the sole mutator of Validator
// records.
type Manager struct {
	mu         sync.RWMutex
	cfg        Config
	validators map[types.Address]*types.Validator
	firstEverAddr *types.Address // first-registered developer node
	log        log15.Logger
}

func New(cfg Config) *Manager {
	return &Manager{
		cfg:        cfg,
		validators: make(map[types.Address]*types.Validator),
		log:        nodelog.New("validator"),
	}
}

// Register creates an Inactive validator.
func (m *Manager) Register(address types.Address, pubkey []byte, stake types.Amount, moniker string) (*types.Validator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.validators[address]; exists {
		return nil, ErrAlreadyRegistered
	}
	if stake < m.cfg.MinStake {
		return nil, ErrStakeTooLow
	}
	v := &types.Validator{
		Address:    address,
		PublicKey:  pubkey,
		Moniker:    moniker,
		Stake:      stake,
		State:      types.ValidatorInactive,
		Reputation: baselineReputation,
	}
	if m.firstEverAddr == nil {
		v.IsDeveloperNode = true
		m.firstEverAddr = &address
	}
	m.validators[address] = v
	return v, nil
}

// Activate transitions Inactive -> Active.
func (m *Manager) Activate(address types.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.validators[address]
	if !ok {
		return ErrNotFound
	}
	if v.State == types.ValidatorTombstoned {
		return ErrTombstoned
	}
	if v.State == types.ValidatorJailed {
		return fmt.Errorf("%w: jailed until %d", ErrNotEligible, v.JailedUntil)
	}
	if v.Stake < m.cfg.MinStake {
		return ErrStakeTooLow
	}
	v.State = types.ValidatorActive
	return nil
}

// RecordProposal updates producedBlocks/missedBlocks bookkeeping. A false
// committed counts toward the missedBlocksBeforeJail limit, forcing
// Active->Jailed once it is reached, and a true committed pays the
// distribution-period bonus on a validator's first successful block.
func (m *Manager) RecordProposal(address types.Address, committed bool, now time.Time) (bonus types.Amount, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.validators[address]
	if !ok {
		return 0, ErrNotFound
	}
	if !committed {
		v.MissedBlocks++
		if v.MissedBlocks >= uint64(m.cfg.MissedBlocksBeforeJail) && v.State == types.ValidatorActive {
			v.State = types.ValidatorJailed
			v.JailedUntil = now.Add(time.Duration(m.cfg.JailTime) * m.cfg.BlockTime).Unix()
			m.log.Warn("validator jailed", "address", address, "jailed_until", v.JailedUntil)
		}
		return 0, nil
	}

	v.MissedBlocks = 0
	v.ProducedBlocks++

	if !v.EarnedBonus && m.withinDistributionPeriod(now) {
		v.EarnedBonus = true
		if v.IsDeveloperNode {
			bonus = m.cfg.DeveloperReward
		} else {
			bonus = m.cfg.ValidatorReward
		}
	}
	return bonus, nil
}

func (m *Manager) withinDistributionPeriod(now time.Time) bool {
	if m.cfg.GenesisTime.IsZero() || m.cfg.DistributionPeriodDays <= 0 {
		return false
	}
	return now.Before(m.cfg.GenesisTime.AddDate(0, 0, m.cfg.DistributionPeriodDays))
}

// RecordEquivocation tombstones the offender and slashes SlashingPenalty of
// their stake.
func (m *Manager) RecordEquivocation(address types.Address, evidence string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.validators[address]
	if !ok {
		return ErrNotFound
	}
	slashed := types.Amount(float64(v.Stake) * m.cfg.SlashingPenalty)
	v.Stake -= slashed
	v.State = types.ValidatorTombstoned
	m.log.Warn("equivocation detected, tombstoning", "address", address, "evidence", evidence, "slashed", slashed)
	return nil
}

// TryUnjail sweeps Jailed validators whose jailedUntil has elapsed back to
// Inactive.
func (m *Manager) TryUnjail(now time.Time) []types.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	var unjailed []types.Address
	for addr, v := range m.validators {
		if v.State == types.ValidatorJailed && now.Unix() >= v.JailedUntil {
			v.State = types.ValidatorInactive
			v.MissedBlocks = 0
			unjailed = append(unjailed, addr)
		}
	}
	return unjailed
}

// eligible returns the current Active validator set in map iteration order;
// callers needing a deterministic order sort it themselves.
func (m *Manager) eligible() []*types.Validator {
	out := make([]*types.Validator, 0, len(m.validators))
	for _, v := range m.validators {
		if v.Eligible() {
			out = append(out, v)
		}
	}
	return out
}

// reputationBonus computes a validator's voting-power multiplier:
// stake·(1+reputationBonus), reputationBonus clamped to [0, ceiling].
func reputationBonus(reputation, normalizer, ceiling float64) float64 {
	if normalizer <= 0 {
		return 0
	}
	b := reputation / normalizer
	if b < 0 {
		return 0
	}
	if b > ceiling {
		return ceiling
	}
	return b
}

// VotingWeight is the consensus engine's view of one validator's weight.
type VotingWeight struct {
	Address types.Address
	Weight  float64
}

// VotingPowers returns the weight of every eligible validator, each
// computed as stake·(1+reputationBonus).
func (m *Manager) VotingPowers(reputationNormalizer, reputationCeiling float64) []VotingWeight {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]VotingWeight, 0, len(m.validators))
	for _, v := range m.validators {
		if !v.Eligible() {
			continue
		}
		weight := float64(v.Stake) * (1 + reputationBonus(v.Reputation, reputationNormalizer, reputationCeiling))
		out = append(out, VotingWeight{Address: v.Address, Weight: weight})
	}
	return out
}

// SelectValidator performs stake-weighted, reputation-biased weighted
// selection over eligible validators using seed to derive deterministic
// randomness.
func (m *Manager) SelectValidator(seed crypto.Hash, reputationNormalizer, reputationCeiling float64) (types.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	eligible := m.eligible()
	if len(eligible) == 0 {
		return types.Address{}, ErrNotFound
	}

	ws := make([]weightedValidator, 0, len(eligible))
	var total float64
	for _, v := range eligible {
		w := float64(v.Stake) * (1 + reputationBonus(v.Reputation, reputationNormalizer, reputationCeiling))
		ws = append(ws, weightedValidator{addr: v.Address, weight: w})
		total += w
	}
	if total <= 0 {
		return ws[0].addr, nil
	}

	r := rand.New(rand.NewSource(int64(seedToUint64(seed)))).Float64() * total
	var cursor float64
	// Deterministic iteration order: sort by address to keep selection
	// reproducible regardless of map iteration.
	sortWeighted(ws)
	for _, w := range ws {
		cursor += w.weight
		if r <= cursor {
			return w.addr, nil
		}
	}
	return ws[len(ws)-1].addr, nil
}

type weightedValidator struct {
	addr   types.Address
	weight float64
}

func sortWeighted(ws []weightedValidator) {
	for i := 1; i < len(ws); i++ {
		for j := i; j > 0 && ws[j].addr.Less(ws[j-1].addr); j-- {
			ws[j], ws[j-1] = ws[j-1], ws[j]
		}
	}
}

func seedToUint64(h crypto.Hash) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	return v
}

// PublicKey implements store.KeyLookup.
func (m *Manager) PublicKey(addr types.Address) (*crypto.PublicKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.validators[addr]
	if !ok || len(v.PublicKey) == 0 {
		return nil, false
	}
	pub, err := crypto.ParsePublicKey(v.PublicKey)
	if err != nil {
		return nil, false
	}
	return pub, true
}

// Get returns a copy of the validator record for addr.
func (m *Manager) Get(addr types.Address) (types.Validator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.validators[addr]
	if !ok {
		return types.Validator{}, false
	}
	return *v, true
}

// All returns a snapshot of every validator, for the driftcli validators
// table and for consensus's quorum-size checks.
func (m *Manager) All() []types.Validator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Validator, 0, len(m.validators))
	for _, v := range m.validators {
		out = append(out, *v)
	}
	return out
}

// ApplyReputationDecay multiplies the reputation of every validator marked
// in active by gainFactor and of every other validator by decayFactor.
func (m *Manager) ApplyReputationDecay(active map[types.Address]bool, decayFactor, gainFactor float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for addr, v := range m.validators {
		if active[addr] {
			v.Reputation *= gainFactor
		} else {
			v.Reputation *= decayFactor
		}
	}
}
