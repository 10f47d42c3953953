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

package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/types"
)

func newManager() *Manager {
	return New(Config{
		MinStake:               100,
		MissedBlocksBeforeJail: 3,
		JailTime:               10,
		BlockTime:              time.Second,
		SlashingPenalty:        0.01,
		DistributionPeriodDays: 90,
		DeveloperReward:        100,
		ValidatorReward:        1,
		GenesisTime:            time.Unix(0, 0),
	})
}

func TestRegisterRejectsLowStake(t *testing.T) {
	m := newManager()
	_, err := m.Register(types.Address{1}, nil, 10, "alice")
	require.ErrorIs(t, err, ErrStakeTooLow)
}

func TestFirstRegisteredIsDeveloperNode(t *testing.T) {
	m := newManager()
	v1, err := m.Register(types.Address{1}, nil, 1000, "alice")
	require.NoError(t, err)
	require.True(t, v1.IsDeveloperNode)

	v2, err := m.Register(types.Address{2}, nil, 1000, "bob")
	require.NoError(t, err)
	require.False(t, v2.IsDeveloperNode)
}

func TestMissedBlocksJails(t *testing.T) {
	m := newManager()
	addr := types.Address{1}
	_, err := m.Register(addr, nil, 1000, "alice")
	require.NoError(t, err)
	require.NoError(t, m.Activate(addr))

	now := time.Unix(100, 0)
	for i := 0; i < 2; i++ {
		_, err := m.RecordProposal(addr, false, now)
		require.NoError(t, err)
	}
	v, _ := m.Get(addr)
	require.Equal(t, types.ValidatorActive, v.State)

	_, err = m.RecordProposal(addr, false, now)
	require.NoError(t, err)
	v, _ = m.Get(addr)
	require.Equal(t, types.ValidatorJailed, v.State)
}

func TestEquivocationTombstonesAndSlashes(t *testing.T) {
	m := newManager()
	addr := types.Address{1}
	_, err := m.Register(addr, nil, 1000, "alice")
	require.NoError(t, err)
	require.NoError(t, m.Activate(addr))

	require.NoError(t, m.RecordEquivocation(addr, "double precommit at (10,0)"))
	v, _ := m.Get(addr)
	require.Equal(t, types.ValidatorTombstoned, v.State)
	require.Equal(t, types.Amount(990), v.Stake)

	// Tombstone is terminal: activation must never succeed again.
	require.ErrorIs(t, m.Activate(addr), ErrTombstoned)
}

func TestTryUnjailAfterJailTimeElapses(t *testing.T) {
	m := newManager()
	addr := types.Address{1}
	_, err := m.Register(addr, nil, 1000, "alice")
	require.NoError(t, err)
	require.NoError(t, m.Activate(addr))

	now := time.Unix(100, 0)
	for i := 0; i < 3; i++ {
		_, _ = m.RecordProposal(addr, false, now)
	}
	v, _ := m.Get(addr)
	require.Equal(t, types.ValidatorJailed, v.State)

	require.Empty(t, m.TryUnjail(now))
	late := time.Unix(v.JailedUntil+1, 0)
	unjailed := m.TryUnjail(late)
	require.Equal(t, []types.Address{addr}, unjailed)

	v, _ = m.Get(addr)
	require.Equal(t, types.ValidatorInactive, v.State)
}

func TestDeveloperAndValidatorBonusDoNotCompose(t *testing.T) {
	m := newManager()
	dev := types.Address{1}
	other := types.Address{2}
	_, err := m.Register(dev, nil, 1000, "dev")
	require.NoError(t, err)
	_, err = m.Register(other, nil, 1000, "other")
	require.NoError(t, err)
	require.NoError(t, m.Activate(dev))
	require.NoError(t, m.Activate(other))

	now := time.Unix(1, 0)
	bonus, err := m.RecordProposal(dev, true, now)
	require.NoError(t, err)
	require.Equal(t, types.Amount(100), bonus)

	// Second proposal from the same validator earns no further bonus.
	bonus, err = m.RecordProposal(dev, true, now)
	require.NoError(t, err)
	require.Equal(t, types.Amount(0), bonus)

	bonus, err = m.RecordProposal(other, true, now)
	require.NoError(t, err)
	require.Equal(t, types.Amount(1), bonus)
}

func TestSelectValidatorOnlyPicksEligible(t *testing.T) {
	m := newManager()
	active := types.Address{1}
	inactive := types.Address{2}
	_, err := m.Register(active, nil, 1000, "a")
	require.NoError(t, err)
	_, err = m.Register(inactive, nil, 1000, "b")
	require.NoError(t, err)
	require.NoError(t, m.Activate(active))

	for i := 0; i < 20; i++ {
		seed := types.Address{byte(i)}
		addr, err := m.SelectValidator(hashFromAddr(seed), 100, 0.5)
		require.NoError(t, err)
		require.Equal(t, active, addr)
	}
}

func hashFromAddr(a types.Address) (h [32]byte) {
	copy(h[:], a[:])
	return h
}

func TestRegisterSeedsNonzeroReputation(t *testing.T) {
	m := newManager()
	v, err := m.Register(types.Address{1}, nil, 1000, "alice")
	require.NoError(t, err)
	require.Greater(t, v.Reputation, 0.0)
}

func TestApplyReputationDecayGrowsActiveReputation(t *testing.T) {
	m := newManager()
	addr := types.Address{1}
	_, err := m.Register(addr, nil, 1000, "alice")
	require.NoError(t, err)

	v, ok := m.Get(addr)
	require.True(t, ok)
	before := v.Reputation

	m.ApplyReputationDecay(map[types.Address]bool{addr: true}, 0.98, 1.02)

	v, ok = m.Get(addr)
	require.True(t, ok)
	require.Greater(t, v.Reputation, before)
}

func TestApplyReputationDecayShrinksInactiveReputation(t *testing.T) {
	m := newManager()
	addr := types.Address{1}
	_, err := m.Register(addr, nil, 1000, "alice")
	require.NoError(t, err)

	v, ok := m.Get(addr)
	require.True(t, ok)
	before := v.Reputation

	m.ApplyReputationDecay(map[types.Address]bool{}, 0.98, 1.02)

	v, ok = m.Get(addr)
	require.True(t, ok)
	require.Less(t, v.Reputation, before)
}
