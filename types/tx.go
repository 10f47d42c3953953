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

// Transaction is a signed balance transfer.
type Transaction struct {
	From      Address
	To        Address
	Amount    Amount
	Fee       Amount
	Nonce     uint64
	Timestamp int64
	Signature []byte
	PublicKey []byte // compressed secp256k1 public key of From, for verification

	hash      crypto.Hash
	hashValid bool
}

// CanonicalEncoding returns the deterministic byte encoding that is hashed
// and signed. It excludes Signature and the cached hash.
func (tx *Transaction) CanonicalEncoding() []byte {
	buf := make([]byte, 0, 20+20+8+8+8+8)
	buf = append(buf, tx.From[:]...)
	buf = append(buf, tx.To[:]...)
	buf = appendUint64(buf, uint64(tx.Amount))
	buf = appendUint64(buf, uint64(tx.Fee))
	buf = appendUint64(buf, tx.Nonce)
	buf = appendUint64(buf, uint64(tx.Timestamp))
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// Hash returns H(CanonicalEncoding()), cached after first computation.
func (tx *Transaction) Hash() crypto.Hash {
	if !tx.hashValid {
		tx.hash = crypto.Keccak256(tx.CanonicalEncoding())
		tx.hashValid = true
	}
	return tx.hash
}

// Sign computes and stores the signature over the transaction's canonical
// encoding using priv, and records the matching public key.
func (tx *Transaction) Sign(priv *crypto.PrivateKey) {
	digest := crypto.Keccak256(tx.CanonicalEncoding())
	tx.Signature = priv.Sign(digest)
	tx.PublicKey = priv.Public().Bytes()
	tx.hashValid = false
}

// VerifySignature checks tx.Signature against tx.PublicKey and that the
// derived address matches tx.From.
func (tx *Transaction) VerifySignature() error {
	pub, err := crypto.ParsePublicKey(tx.PublicKey)
	if err != nil {
		return err
	}
	if pub.Address() != tx.From {
		return ErrSignerMismatch
	}
	digest := crypto.Keccak256(tx.CanonicalEncoding())
	return crypto.Verify(pub, digest, tx.Signature)
}

// Size approximates the serialized size in bytes, used for mempool and
// block size accounting.
func (tx *Transaction) Size() int {
	return len(tx.CanonicalEncoding()) + len(tx.Signature) + len(tx.PublicKey)
}

// ErrSignerMismatch is returned when a transaction's signing key does not
// derive to its declared From address.
var ErrSignerMismatch = errSignerMismatch{}

type errSignerMismatch struct{}

func (errSignerMismatch) Error() string { return "types: signer does not match from address" }
