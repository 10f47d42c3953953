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

package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

type zeroNonces struct{}

func (zeroNonces) LastCommittedNonce(types.Address) uint64 { return 0 }

func newTx(t *testing.T, priv *crypto.PrivateKey, to types.Address, nonce uint64, fee types.Amount) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		From:      priv.Public().Address(),
		To:        to,
		Amount:    1,
		Fee:       fee,
		Nonce:     nonce,
		Timestamp: time.Now().Unix(),
	}
	tx.Sign(priv)
	return tx
}

func defaultConfig() Config {
	return Config{
		MaxTransactions: 100,
		MaxSizeBytes:    1 << 20,
		ExpirationTime:  time.Hour,
		MinFee:          1,
	}
}

func TestAddRejectsWrongNonce(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := New(defaultConfig(), zeroNonces{})

	tx := newTx(t, priv, types.Address{9}, 5, 10)
	res := p.Add(tx)
	require.ErrorIs(t, res.Reason, ErrNonceTooLow)
}

func TestAddAcceptsSequentialNonces(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := New(defaultConfig(), zeroNonces{})

	tx1 := newTx(t, priv, types.Address{9}, 1, 10)
	require.True(t, p.Add(tx1).OK)

	tx2 := newTx(t, priv, types.Address{9}, 2, 10)
	require.True(t, p.Add(tx2).OK)

	require.Equal(t, 2, p.Len())
	require.Len(t, p.GetBySender(priv.Public().Address()), 2)
}

func TestAddRejectsDuplicate(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := New(defaultConfig(), zeroNonces{})

	tx := newTx(t, priv, types.Address{9}, 1, 10)
	require.True(t, p.Add(tx).OK)
	res := p.Add(tx)
	require.ErrorIs(t, res.Reason, ErrDuplicate)
}

func TestAddRejectsLowFee(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := defaultConfig()
	cfg.MinFee = 100
	p := New(cfg, zeroNonces{})

	tx := newTx(t, priv, types.Address{9}, 1, 1)
	res := p.Add(tx)
	require.ErrorIs(t, res.Reason, ErrInsufficientFee)
}

func TestPickForBlockOrdersByFeeRespectingNonces(t *testing.T) {
	privA, err := crypto.GenerateKey()
	require.NoError(t, err)
	privB, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := New(defaultConfig(), zeroNonces{})

	require.True(t, p.Add(newTx(t, privA, types.Address{9}, 1, 5)).OK)
	require.True(t, p.Add(newTx(t, privA, types.Address{9}, 2, 50)).OK)
	require.True(t, p.Add(newTx(t, privB, types.Address{9}, 1, 20)).OK)

	picked := p.PickForBlock(10, 1<<20)
	require.Len(t, picked, 3)
	// privA's nonce 1 must precede nonce 2 despite the lower fee.
	var sawA1, sawA2 bool
	for i, tx := range picked {
		if tx.From == privA.Public().Address() && tx.Nonce == 1 {
			sawA1 = true
			require.False(t, sawA2, "nonce 1 must come before nonce 2")
		}
		if tx.From == privA.Public().Address() && tx.Nonce == 2 {
			sawA2 = true
			require.True(t, sawA1)
		}
		_ = i
	}
}

func TestRemoveCommittedClearsEntries(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := New(defaultConfig(), zeroNonces{})

	tx := newTx(t, priv, types.Address{9}, 1, 10)
	require.True(t, p.Add(tx).OK)
	p.RemoveCommitted([]*types.Transaction{tx})
	require.Equal(t, 0, p.Len())
}

func TestCleanupExpiresOldEntries(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := defaultConfig()
	cfg.ExpirationTime = time.Millisecond
	p := New(cfg, zeroNonces{})

	tx := newTx(t, priv, types.Address{9}, 1, 10)
	require.True(t, p.Add(tx).OK)
	time.Sleep(5 * time.Millisecond)
	removed := p.Cleanup(time.Now())
	require.Equal(t, 1, removed)
	require.Equal(t, 0, p.Len())
}
