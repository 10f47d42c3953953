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

package integrator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/mempool"
	"github.com/driftchain/driftd/p2p"
	"github.com/driftchain/driftd/p2p/peerstore"
	"github.com/driftchain/driftd/types"
)

type zeroNonces struct{}

func (zeroNonces) LastCommittedNonce(types.Address) uint64 { return 0 }

func newTestNode(t *testing.T) *Node {
	t.Helper()
	pool := mempool.New(mempool.Config{MaxTransactions: 10, MaxSizeBytes: 1 << 20, ExpirationTime: time.Hour, MinFee: 0}, zeroNonces{})
	ps, err := peerstore.Open(peerstore.Config{MaxPeers: 10})
	require.NoError(t, err)
	return New(nil, nil, pool, nil, ps, nil, nil)
}

func TestDispatchAddsGossipedTransactionToPool(t *testing.T) {
	n := newTestNode(t)
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &types.Transaction{From: priv.Public().Address(), To: types.Address{9}, Amount: 1, Fee: 1, Nonce: 1, Timestamp: time.Now().Unix()}
	tx.Sign(priv)
	raw, err := json.Marshal(tx)
	require.NoError(t, err)

	n.dispatch(p2p.InboundMessage{Type: p2p.MsgNewTransaction, Data: raw})
	require.Equal(t, 1, n.pool.Len())
}

func TestDispatchIgnoresMalformedTransaction(t *testing.T) {
	n := newTestNode(t)
	n.dispatch(p2p.InboundMessage{Type: p2p.MsgNewTransaction, Data: []byte("not json")})
	require.Equal(t, 0, n.pool.Len())
}

func TestDispatchPeersPayloadInsertsIntoPeerStore(t *testing.T) {
	n := newTestNode(t)
	payload := p2p.PeersPayload{Addrs: []string{"1.2.3.4:9000"}}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	n.dispatch(p2p.InboundMessage{Type: p2p.MsgPeers, Data: raw})
	require.Equal(t, 1, n.peerStore.Len())
}
