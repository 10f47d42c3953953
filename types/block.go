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

package types

import (
	"encoding/binary"

	"github.com/driftchain/driftd/crypto"
)

// Block is a proposed or committed block.
type Block struct {
	Height       uint64
	PreviousHash crypto.Hash
	Timestamp    int64
	Transactions []*Transaction
	Proposer     Address
	Signature    []byte
	MerkleRoot   crypto.Hash

	hash      crypto.Hash
	hashValid bool
}

// MerkleRootOf computes the Merkle root over a list of transactions by
// repeated pairwise Keccak256 hashing, duplicating the last element of an
// odd-sized level (Bitcoin/Decred convention).
func MerkleRootOf(txs []*Transaction) crypto.Hash {
	if len(txs) == 0 {
		return crypto.Hash{}
	}
	level := make([]crypto.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash()
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]crypto.Hash, len(level)/2)
		for i := range next {
			next[i] = crypto.Keccak256(level[2*i].Bytes(), level[2*i+1].Bytes())
		}
		level = next
	}
	return level[0]
}

// HeaderEncoding returns the bytes hashed to produce Block.Hash:
// H(height ‖ previousHash ‖ timestamp ‖ proposer ‖ merkleRoot).
func (b *Block) HeaderEncoding() []byte {
	buf := make([]byte, 0, 8+32+8+20+32)
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], b.Height)
	buf = append(buf, h[:]...)
	buf = append(buf, b.PreviousHash.Bytes()...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(b.Timestamp))
	buf = append(buf, ts[:]...)
	buf = append(buf, b.Proposer[:]...)
	buf = append(buf, b.MerkleRoot.Bytes()...)
	return buf
}

// Hash computes and caches the block hash. Finalize must be called (or the
// MerkleRoot field set) before Hash reflects the final transaction set.
func (b *Block) Hash() crypto.Hash {
	if !b.hashValid {
		b.hash = crypto.Keccak256(b.HeaderEncoding())
		b.hashValid = true
	}
	return b.hash
}

// Finalize computes MerkleRoot from Transactions and invalidates any cached
// hash, then signs the header with priv, recording Proposer as priv's
// address. Call this once all transactions are set and before broadcasting.
func (b *Block) Finalize(priv *crypto.PrivateKey) {
	b.MerkleRoot = MerkleRootOf(b.Transactions)
	b.Proposer = priv.Public().Address()
	b.hashValid = false
	digest := b.Hash()
	b.Signature = priv.Sign(digest)
}

// VerifySignature checks Signature against the recomputed header digest and
// the proposer's declared public key.
func (b *Block) VerifySignature(proposerKey *crypto.PublicKey) error {
	if proposerKey.Address() != b.Proposer {
		return ErrSignerMismatch
	}
	return crypto.Verify(proposerKey, b.Hash(), b.Signature)
}

// Size approximates the serialized size in bytes for the blockSizeLimit
// check.
func (b *Block) Size() int {
	total := len(b.HeaderEncoding()) + len(b.Signature)
	for _, tx := range b.Transactions {
		total += tx.Size()
	}
	return total
}
