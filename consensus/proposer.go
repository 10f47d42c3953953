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

// proposerSeed derives the deterministic selection seed for (H,R):
// H(prevBlockHash ‖ H ‖ R).
func proposerSeed(prevHash crypto.Hash, height, round uint64) crypto.Hash {
	return crypto.Keccak256(prevHash.Bytes(), encodeUint64(height), encodeUint64(round))
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// buildProposal assembles a candidate block from the mempool; the caller
// signs and broadcasts it.
func buildProposal(height uint64, prevHash crypto.Hash, proposer types.Address, txs []*types.Transaction, ts int64) *types.Block {
	return &types.Block{
		Height:       height,
		PreviousHash: prevHash,
		Timestamp:    ts,
		Transactions: txs,
		Proposer:     proposer,
	}
}

// validateProposal checks a proposed block's structural validity,
// independent of vote accounting.
func validateProposal(b *types.Block, expectHeight uint64, expectPrevHash crypto.Hash, expectProposer types.Address, proposerKey *crypto.PublicKey, parentTimestamp int64, maxSize int) error {
	if b.Height != expectHeight {
		return ErrInvalidProposal
	}
	if b.PreviousHash != expectPrevHash {
		return ErrInvalidProposal
	}
	if b.Proposer != expectProposer {
		return ErrInvalidProposal
	}
	if err := b.VerifySignature(proposerKey); err != nil {
		return ErrInvalidProposal
	}
	if b.Timestamp <= parentTimestamp {
		return ErrInvalidProposal
	}
	if b.Size() > maxSize {
		return ErrInvalidProposal
	}
	for _, tx := range b.Transactions {
		if err := tx.VerifySignature(); err != nil {
			return ErrInvalidProposal
		}
	}
	return nil
}
