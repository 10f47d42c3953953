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

package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

type staticKeys struct {
	addr types.Address
	pub  *crypto.PublicKey
}

func (k staticKeys) PublicKey(addr types.Address) (*crypto.PublicKey, bool) {
	if addr == k.addr {
		return k.pub, true
	}
	return nil, false
}

func signedBlock(t *testing.T, priv *crypto.PrivateKey, height uint64, prev crypto.Hash, ts int64) *types.Block {
	t.Helper()
	b := &types.Block{Height: height, PreviousHash: prev, Timestamp: ts}
	b.Finalize(priv)
	return b
}

func TestRewardAt(t *testing.T) {
	require.Equal(t, types.Amount(21*types.OneDrift), RewardAt(0, 100))
	require.Equal(t, types.Amount(21*types.OneDrift), RewardAt(99, 100))
	require.Equal(t, types.Amount(1050000000), RewardAt(100, 100))
	require.Equal(t, types.Amount(525000000), RewardAt(200, 100))
}

func TestAddBlockChainContinuityAndDuplicate(t *testing.T) {
	dir := t.TempDir()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	keys := staticKeys{addr: priv.Public().Address(), pub: priv.Public()}

	s, err := Open(Config{DataDir: dir, HalvingInterval: 100, MaxSupply: 21_000_000 * types.OneDrift, CheckpointInterval: 10, CheckpointsKept: 3}, nil)
	require.NoError(t, err)
	defer s.Close()

	b0 := signedBlock(t, priv, 0, crypto.Hash{}, 1000)
	ok, err := s.AddBlock(b0, keys.addr, keys)
	require.NoError(t, err)
	require.True(t, ok)

	b1 := signedBlock(t, priv, 1, b0.Hash(), 1010)
	ok, err = s.AddBlock(b1, keys.addr, keys)
	require.NoError(t, err)
	require.True(t, ok)

	got1, err := s.GetBlockByHeight(0)
	require.NoError(t, err)
	require.Equal(t, b0.Hash(), got1.Hash())

	got2, err := s.GetBlockByHeight(1)
	require.NoError(t, err)
	require.Equal(t, got1.Hash(), got2.PreviousHash)

	ok, err = s.AddBlock(b0, keys.addr, keys)
	require.ErrorIs(t, err, ErrDuplicateBlock)
	require.False(t, ok)

	height, ok := s.GetHeight()
	require.True(t, ok)
	require.Equal(t, uint64(1), height)
}

func TestAddBlockRejectsHeightGap(t *testing.T) {
	dir := t.TempDir()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	keys := staticKeys{addr: priv.Public().Address(), pub: priv.Public()}

	s, err := Open(Config{DataDir: dir, HalvingInterval: 100, MaxSupply: 21_000_000 * types.OneDrift}, nil)
	require.NoError(t, err)
	defer s.Close()

	bad := signedBlock(t, priv, 5, crypto.Hash{}, 1000)
	_, err = s.AddBlock(bad, keys.addr, keys)
	require.ErrorIs(t, err, ErrHeightMismatch)
}

func TestProposerCoinbaseReward(t *testing.T) {
	dir := t.TempDir()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	keys := staticKeys{addr: priv.Public().Address(), pub: priv.Public()}

	events := make(chan Event, 8)
	s, err := Open(Config{DataDir: dir, HalvingInterval: 100, MaxSupply: 21_000_000 * types.OneDrift}, events)
	require.NoError(t, err)
	defer s.Close()

	b0 := signedBlock(t, priv, 0, crypto.Hash{}, 1000)
	_, err = s.AddBlock(b0, keys.addr, keys)
	require.NoError(t, err)

	ev := <-events
	require.Equal(t, types.Amount(21*types.OneDrift), ev.Reward)
	acc := s.Account(keys.addr)
	require.Equal(t, types.Amount(21*types.OneDrift), acc.Balance)
}
