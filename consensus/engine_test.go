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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/mempool"
	"github.com/driftchain/driftd/store"
	"github.com/driftchain/driftd/types"
	"github.com/driftchain/driftd/validator"

	"github.com/driftchain/driftd/crypto"
)

func newTestEngine(t *testing.T) (*Engine, types.Address) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := priv.Public().Address()

	vm := validator.New(validator.Config{
		MinStake:               100,
		MissedBlocksBeforeJail: 100,
		JailTime:               1,
		BlockTime:              time.Second,
		SlashingPenalty:        0.01,
		DistributionPeriodDays: 0,
		GenesisTime:            time.Unix(0, 0),
	})
	_, err = vm.Register(addr, priv.Public().Bytes(), 1000, "solo")
	require.NoError(t, err)
	require.NoError(t, vm.Activate(addr))

	st, err := store.Open(store.Config{DataDir: t.TempDir(), HalvingInterval: 100, MaxSupply: 21_000_000 * types.OneDrift}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	pool := mempool.New(mempool.Config{MaxTransactions: 100, MaxSizeBytes: 1 << 20, ExpirationTime: time.Hour}, st)

	cfg := Config{
		BlockTime:             100 * time.Millisecond,
		MinValidators:         1,
		FinalizationThreshold: 2.0 / 3.0,
		BlockProposalTimeout:  200 * time.Millisecond,
		VotingTimeout:         200 * time.Millisecond,
		MaxRound:              5,
		BlockSizeLimit:        1 << 20,
		ReputationNormalizer:  100,
		ReputationCeiling:     0.5,
		ReputationDecayFactor: 0.99,
		ReputationGainFactor:  1.01,
	}
	events := make(chan Event, 16)
	e := New(cfg, &Self{Address: addr, Key: priv}, st, pool, vm, nil, events)
	return e, addr
}

func TestRunRoundFinalizesWithSoleValidator(t *testing.T) {
	e, addr := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok := e.RunRound(ctx)
	require.True(t, ok)
	require.Equal(t, uint64(1), e.Height())

	height, hasAny := e.store.GetHeight()
	require.True(t, hasAny)
	require.Equal(t, uint64(0), height)

	blk, err := e.store.GetBlockByHeight(0)
	require.NoError(t, err)
	require.Equal(t, addr, blk.Proposer)
}

func TestRunRoundDoesNotFinalizeWithoutEligibleValidator(t *testing.T) {
	e, addr := newTestEngine(t)
	v, _ := e.validators.Get(addr)
	_ = v
	require.NoError(t, e.validators.RecordEquivocation(addr, "test"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ok := e.RunRound(ctx)
	require.False(t, ok)
	require.Equal(t, uint64(0), e.Height())
}
