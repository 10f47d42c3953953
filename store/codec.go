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
	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

// wireBlock is the canonical serialization used for blocks.dat records and
// for NEW_BLOCK gossip payloads, carrying the block in the same encoding
// used for hashing.
type wireBlock struct {
	Height       uint64      `json:"height"`
	PreviousHash crypto.Hash `json:"previous_hash"`
	Timestamp    int64       `json:"timestamp"`
	Transactions []wireTx    `json:"transactions"`
	Proposer     types.Address `json:"proposer"`
	Signature    []byte      `json:"signature"`
	MerkleRoot   crypto.Hash `json:"merkle_root"`
}

type wireTx struct {
	From      types.Address `json:"from"`
	To        types.Address `json:"to"`
	Amount    types.Amount  `json:"amount"`
	Fee       types.Amount  `json:"fee"`
	Nonce     uint64        `json:"nonce"`
	Timestamp int64         `json:"timestamp"`
	Signature []byte        `json:"signature"`
	PublicKey []byte        `json:"public_key"`
}

func newWireBlock(b *types.Block) wireBlock {
	w := wireBlock{
		Height:       b.Height,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
		Proposer:     b.Proposer,
		Signature:    b.Signature,
		MerkleRoot:   b.MerkleRoot,
	}
	for _, tx := range b.Transactions {
		w.Transactions = append(w.Transactions, wireTx{
			From: tx.From, To: tx.To, Amount: tx.Amount, Fee: tx.Fee,
			Nonce: tx.Nonce, Timestamp: tx.Timestamp,
			Signature: tx.Signature, PublicKey: tx.PublicKey,
		})
	}
	return w
}

func (w wireBlock) toBlock() *types.Block {
	b := &types.Block{
		Height:       w.Height,
		PreviousHash: w.PreviousHash,
		Timestamp:    w.Timestamp,
		Proposer:     w.Proposer,
		Signature:    w.Signature,
		MerkleRoot:   w.MerkleRoot,
	}
	for _, wt := range w.Transactions {
		b.Transactions = append(b.Transactions, &types.Transaction{
			From: wt.From, To: wt.To, Amount: wt.Amount, Fee: wt.Fee,
			Nonce: wt.Nonce, Timestamp: wt.Timestamp,
			Signature: wt.Signature, PublicKey: wt.PublicKey,
		})
	}
	return b
}
